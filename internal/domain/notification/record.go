// internal/domain/notification/record.go
package notification

import "time"

// Record is one firing attempt of a logical notification on a single channel.
// Records are append-only: they change status but are never deleted by the engine.
type Record struct {
	ID          string
	RecipientID string
	Audience    Audience
	Category    Category
	Priority    Priority
	Channel     Channel
	Status      Status
	RuleID      string
	Title       string
	Body        string

	// Correlation ids; empty when not applicable
	MatterID    string
	CaseID      string
	DeadlineID  string
	CourtDateID string
	DigestID    string

	DedupKey string

	CreatedAt      time.Time
	ScheduledAt    time.Time // when a scheduled record becomes due again
	SentAt         time.Time
	DeliveredAt    time.Time
	OpenedAt       time.Time
	FailedAt       time.Time
	AcknowledgedAt time.Time

	RetryCount int
	MaxRetries int
	Error      string
}

// Clone returns a copy safe to hand to another goroutine.
func (r *Record) Clone() Record {
	return *r
}

// Acknowledged reports whether an operator acknowledged the record.
func (r *Record) Acknowledged() bool {
	return !r.AcknowledgedAt.IsZero()
}
