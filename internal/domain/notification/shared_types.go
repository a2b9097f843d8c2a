// internal/domain/notification/shared_types.go
package notification

// Category identifies the kind of case event a notification is about.
type Category string

const (
	// Lawyer-facing categories
	CategoryDeadlineApproaching    Category = "deadline_approaching"
	CategoryDeadlineOverdue        Category = "deadline_overdue"
	CategoryCourtDateUpcoming      Category = "court_date_upcoming"
	CategoryCourtDateTomorrow      Category = "court_date_tomorrow"
	CategoryFollowUpDue            Category = "follow_up_due"
	CategoryCalendarConflict       Category = "calendar_conflict"
	CategoryDocumentActionRequired Category = "document_action_required"
	CategoryDailyBriefing          Category = "daily_briefing"
	CategoryWeeklySummary          Category = "weekly_summary"
	CategoryDigest                 Category = "digest"

	// Client-facing categories
	CategoryClientCourtDateReminder Category = "client_court_date_reminder"
	CategoryClientDocumentRequest   Category = "client_document_request"
	CategoryClientInvoiceDue        Category = "client_invoice_due"
	CategoryClientInvoiceOverdue    Category = "client_invoice_overdue"

	CategoryUnknown Category = "unknown"
)

var knownCategories = map[Category]bool{
	CategoryDeadlineApproaching:     true,
	CategoryDeadlineOverdue:         true,
	CategoryCourtDateUpcoming:       true,
	CategoryCourtDateTomorrow:       true,
	CategoryFollowUpDue:             true,
	CategoryCalendarConflict:        true,
	CategoryDocumentActionRequired:  true,
	CategoryDailyBriefing:           true,
	CategoryWeeklySummary:           true,
	CategoryDigest:                  true,
	CategoryClientCourtDateReminder: true,
	CategoryClientDocumentRequest:   true,
	CategoryClientInvoiceDue:        true,
	CategoryClientInvoiceOverdue:    true,
}

// ParseCategory maps a raw string onto the closed category set.
// Anything it does not recognise comes back as CategoryUnknown.
func ParseCategory(s string) Category {
	c := Category(s)
	if knownCategories[c] {
		return c
	}
	return CategoryUnknown
}

// Valid reports whether c belongs to the closed category set.
func (c Category) Valid() bool { return knownCategories[c] }

// Audience separates internal operators from external recipients.
type Audience string

const (
	AudienceLawyer Audience = "lawyer"
	AudienceClient Audience = "client"
)

// Priority is the urgency tier of a notification.
// Lawyer-facing rules use critical/high/normal/low, client-facing ones immediate/high/normal/low/digest.
type Priority string

const (
	PriorityCritical  Priority = "critical"
	PriorityImmediate Priority = "immediate"
	PriorityHigh      Priority = "high"
	PriorityNormal    Priority = "normal"
	PriorityLow       Priority = "low"
	PriorityDigest    Priority = "digest"
)

// Urgent priorities bypass quiet hours and digests.
func (p Priority) Urgent() bool {
	return p == PriorityCritical || p == PriorityImmediate
}

// Digestable reports whether p is below high and may be batched into a digest.
func (p Priority) Digestable() bool {
	return p == PriorityNormal || p == PriorityLow || p == PriorityDigest
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityImmediate, PriorityHigh, PriorityNormal, PriorityLow, PriorityDigest:
		return true
	}
	return false
}

// Channel is an outbound delivery mechanism.
type Channel string

const (
	ChannelEmail  Channel = "email"
	ChannelPush   Channel = "push"
	ChannelChat   Channel = "chat"
	ChannelInApp  Channel = "in_app"
	ChannelSMS    Channel = "sms"
	ChannelPortal Channel = "portal"
)

// AllChannels lists every channel in a stable order.
var AllChannels = []Channel{ChannelEmail, ChannelPush, ChannelChat, ChannelInApp, ChannelSMS, ChannelPortal}

func (c Channel) Valid() bool {
	for _, ch := range AllChannels {
		if ch == c {
			return true
		}
	}
	return false
}

// Status is a state of the per-record delivery state machine.
type Status string

const (
	StatusPending    Status = "pending"
	StatusSending    Status = "sending"
	StatusSent       Status = "sent"
	StatusDelivered  Status = "delivered"
	StatusOpened     Status = "opened"
	StatusFailed     Status = "failed"
	StatusScheduled  Status = "scheduled"
	StatusSuppressed Status = "suppressed" // deferred by quiet hours
	StatusBatched    Status = "batched"    // parked in a pending digest
)

// Frequency is how often a recipient wants non-urgent notifications on a channel.
type Frequency string

const (
	FrequencyImmediate Frequency = "immediate"
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
)

// Severity of an audit entry.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)
