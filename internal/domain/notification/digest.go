// internal/domain/notification/digest.go
package notification

import "time"

// DigestStatus tracks whether a batch of notifications has been flushed.
type DigestStatus string

const (
	DigestPending DigestStatus = "pending"
	DigestSent    DigestStatus = "sent"
	DigestFailed  DigestStatus = "failed"
)

// Digest batches non-urgent notifications for one recipient and frequency.
type Digest struct {
	ID                string
	RecipientID       string
	Audience          Audience
	Frequency         Frequency
	RecordIDs         []string
	ScheduledAt       time.Time
	Status            DigestStatus
	CreatedAt         time.Time
	SentAt            time.Time
	CompositeRecordID string // the record that carried the flushed digest
}
