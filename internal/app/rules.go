// internal/app/rules.go
package app

import (
	"strconv"

	"case_reminder_engine/internal/domain/notification"
)

// minDocumentRequestAgeDays keeps clients from being chased the day a document was requested.
const minDocumentRequestAgeDays = 2

// DefaultRules returns the built-in trigger rules.
func DefaultRules() []notification.Rule {
	return []notification.Rule{
		{
			ID:              "deadline-approaching",
			Category:        notification.CategoryDeadlineApproaching,
			Audience:        notification.AudienceLawyer,
			Enabled:         true,
			Channels:        []notification.Channel{notification.ChannelEmail, notification.ChannelPush, notification.ChannelChat, notification.ChannelInApp},
			Priority:        notification.PriorityNormal,
			SubjectTemplate: "Deadline {time_until}: {deadline_title}",
			BodyTemplate:    "Matter {matter_title}: \"{deadline_title}\" is due {due_at} ({time_until}).",
		},
		{
			ID:              "deadline-overdue",
			Category:        notification.CategoryDeadlineOverdue,
			Audience:        notification.AudienceLawyer,
			Enabled:         true,
			Channels:        []notification.Channel{notification.ChannelEmail, notification.ChannelPush, notification.ChannelChat, notification.ChannelInApp},
			Priority:        notification.PriorityCritical,
			SubjectTemplate: "OVERDUE: {deadline_title}",
			BodyTemplate:    "Matter {matter_title}: \"{deadline_title}\" was due {due_at} ({time_until}).",
		},
		{
			ID:              "court-date-upcoming",
			Category:        notification.CategoryCourtDateUpcoming,
			Audience:        notification.AudienceLawyer,
			Enabled:         true,
			Channels:        []notification.Channel{notification.ChannelEmail, notification.ChannelPush, notification.ChannelChat, notification.ChannelInApp},
			Priority:        notification.PriorityHigh,
			SubjectTemplate: "Court date {time_until}: {court_title}",
			BodyTemplate:    "{court_title} ({case_number}) at {court} on {starts_at}, {time_until}.",
		},
		{
			ID:              "court-date-tomorrow",
			Category:        notification.CategoryCourtDateTomorrow,
			Audience:        notification.AudienceLawyer,
			Enabled:         true,
			Channels:        []notification.Channel{notification.ChannelEmail, notification.ChannelPush, notification.ChannelChat, notification.ChannelInApp},
			Priority:        notification.PriorityHigh,
			SubjectTemplate: "Court tomorrow: {court_title}",
			BodyTemplate:    "{court_title} ({case_number}) at {court} on {starts_at}. Matter: {matter_title}.",
		},
		{
			ID:              "follow-up-due",
			Category:        notification.CategoryFollowUpDue,
			Audience:        notification.AudienceLawyer,
			Enabled:         true,
			Channels:        []notification.Channel{notification.ChannelEmail, notification.ChannelInApp},
			Priority:        notification.PriorityNormal,
			SubjectTemplate: "Follow-up due {time_until}: {follow_up_title}",
			BodyTemplate:    "Follow-up \"{follow_up_title}\" on {matter_title} is due {due_at}.",
		},
		{
			ID:              "calendar-conflict",
			Category:        notification.CategoryCalendarConflict,
			Audience:        notification.AudienceLawyer,
			Enabled:         true,
			Channels:        []notification.Channel{notification.ChannelEmail, notification.ChannelPush, notification.ChannelInApp},
			Priority:        notification.PriorityHigh,
			SubjectTemplate: "Calendar conflict on {date}",
			BodyTemplate:    "\"{first_title}\" ({first_start}-{first_end}) overlaps \"{second_title}\" ({second_start}-{second_end}).",
		},
		{
			ID:              "document-action-required",
			Category:        notification.CategoryDocumentActionRequired,
			Audience:        notification.AudienceLawyer,
			Enabled:         true,
			Channels:        []notification.Channel{notification.ChannelEmail, notification.ChannelInApp},
			Priority:        notification.PriorityNormal,
			SubjectTemplate: "Document to {action}: {document_title}",
			BodyTemplate:    "\"{document_title}\" on {matter_title} needs to be {action} by {due_at}.",
		},
		{
			ID:              "daily-briefing",
			Category:        notification.CategoryDailyBriefing,
			Audience:        notification.AudienceLawyer,
			Enabled:         true,
			Channels:        []notification.Channel{notification.ChannelEmail, notification.ChannelInApp},
			Priority:        notification.PriorityHigh,
			SubjectTemplate: "Daily briefing for {date}",
			BodyTemplate:    "Good morning {name}. Today: {deadlines_today} deadline(s), {court_dates_today} court date(s), {overdue} overdue item(s).\n{items}",
		},
		{
			ID:              "weekly-summary",
			Category:        notification.CategoryWeeklySummary,
			Audience:        notification.AudienceLawyer,
			Enabled:         true,
			Channels:        []notification.Channel{notification.ChannelEmail, notification.ChannelInApp},
			Priority:        notification.PriorityHigh,
			SubjectTemplate: "Weekly summary, week of {date}",
			BodyTemplate:    "{name}, the coming week has {deadlines_week} deadline(s) and {court_dates_week} court date(s); {overdue} item(s) are overdue.\n{items}",
		},
		{
			ID:              "client-court-date-reminder",
			Category:        notification.CategoryClientCourtDateReminder,
			Audience:        notification.AudienceClient,
			Enabled:         true,
			Channels:        []notification.Channel{notification.ChannelEmail, notification.ChannelSMS, notification.ChannelPortal},
			Priority:        notification.PriorityHigh,
			SubjectTemplate: "Reminder: your hearing {time_until}",
			BodyTemplate:    "Dear {client_name}, your hearing \"{court_title}\" is at {court} on {starts_at}.",
		},
		{
			ID:              "client-document-request",
			Category:        notification.CategoryClientDocumentRequest,
			Audience:        notification.AudienceClient,
			Enabled:         true,
			Channels:        []notification.Channel{notification.ChannelEmail, notification.ChannelPortal},
			Priority:        notification.PriorityNormal,
			SubjectTemplate: "We are still waiting for: {document_title}",
			BodyTemplate:    "Dear {client_name}, please upload \"{document_title}\" for {matter_title}. Requested {days_outstanding} day(s) ago.",
			Guard: func(o notification.Occurrence) bool {
				days, err := strconv.Atoi(o.Vars["days_outstanding"])
				return err == nil && days >= minDocumentRequestAgeDays
			},
		},
		{
			ID:              "client-invoice-due",
			Category:        notification.CategoryClientInvoiceDue,
			Audience:        notification.AudienceClient,
			Enabled:         true,
			Channels:        []notification.Channel{notification.ChannelEmail, notification.ChannelPortal},
			Priority:        notification.PriorityNormal,
			SubjectTemplate: "Invoice {invoice_number} due {time_until}",
			BodyTemplate:    "Dear {client_name}, invoice {invoice_number} for {amount} is due on {due_at}.",
		},
		{
			ID:              "client-invoice-overdue",
			Category:        notification.CategoryClientInvoiceOverdue,
			Audience:        notification.AudienceClient,
			Enabled:         true,
			Channels:        []notification.Channel{notification.ChannelEmail, notification.ChannelPortal},
			Priority:        notification.PriorityHigh,
			SubjectTemplate: "Invoice {invoice_number} is overdue",
			BodyTemplate:    "Dear {client_name}, invoice {invoice_number} for {amount} was due on {due_at}.",
		},
	}
}
