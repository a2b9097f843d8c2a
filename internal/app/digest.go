// internal/app/digest.go
package app

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"case_reminder_engine/internal/domain/notification"

	"github.com/google/uuid"
)

// DigestAggregator buckets non-urgent notifications per (recipient, frequency).
// Not safe for concurrent use; the engine serializes access.
type DigestAggregator struct {
	pending map[string]*notification.Digest // recipient|frequency -> the single pending digest
	all     map[string]*notification.Digest
}

func NewDigestAggregator() *DigestAggregator {
	return &DigestAggregator{
		pending: make(map[string]*notification.Digest),
		all:     make(map[string]*notification.Digest),
	}
}

func digestBucket(recipientID string, f notification.Frequency) string {
	return recipientID + "|" + string(f)
}

// DigestInterval is the delay between creating a digest and flushing it.
func DigestInterval(f notification.Frequency) time.Duration {
	if f == notification.FrequencyWeekly {
		return 7 * 24 * time.Hour
	}
	return 24 * time.Hour
}

// Add appends a record to the recipient's pending digest, creating it on first use.
func (a *DigestAggregator) Add(recipientID string, audience notification.Audience, f notification.Frequency, recordID string, now time.Time) *notification.Digest {
	key := digestBucket(recipientID, f)
	d, ok := a.pending[key]
	if !ok {
		d = &notification.Digest{
			ID:          uuid.NewString(),
			RecipientID: recipientID,
			Audience:    audience,
			Frequency:   f,
			ScheduledAt: now.Add(DigestInterval(f)),
			Status:      notification.DigestPending,
			CreatedAt:   now,
		}
		a.pending[key] = d
		a.all[d.ID] = d
	}
	d.RecordIDs = append(d.RecordIDs, recordID)
	return d
}

// Due returns pending digests whose flush time has come, oldest first.
func (a *DigestAggregator) Due(now time.Time) []*notification.Digest {
	var out []*notification.Digest
	for _, d := range a.pending {
		if !d.ScheduledAt.After(now) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	return out
}

// Pending returns the pending digest for (recipient, frequency), if any.
func (a *DigestAggregator) Pending(recipientID string, f notification.Frequency) (*notification.Digest, bool) {
	d, ok := a.pending[digestBucket(recipientID, f)]
	return d, ok
}

// Get looks up any digest by id.
func (a *DigestAggregator) Get(id string) (*notification.Digest, bool) {
	d, ok := a.all[id]
	return d, ok
}

// Close marks a digest flushed. The next qualifying notification creates a new one.
func (a *DigestAggregator) Close(d *notification.Digest, status notification.DigestStatus, compositeID string, now time.Time) {
	d.Status = status
	d.CompositeRecordID = compositeID
	if status == notification.DigestSent {
		d.SentAt = now
	}
	delete(a.pending, digestBucket(d.RecipientID, d.Frequency))
}

// ComposeDigest concatenates the constituent notifications into one message.
// Records of the same occurrence batched from several channels appear once.
func ComposeDigest(f notification.Frequency, records []*notification.Record) (string, string) {
	records = uniqueOccurrences(records)
	label := "Daily"
	if f == notification.FrequencyWeekly {
		label = "Weekly"
	}
	title := fmt.Sprintf("%s digest: %d update(s)", label, len(records))
	var body strings.Builder
	for i, r := range records {
		if i > 0 {
			body.WriteString("\n")
		}
		body.WriteString(fmt.Sprintf("- %s: %s", r.Title, r.Body))
	}
	return title, body.String()
}

func uniqueOccurrences(records []*notification.Record) []*notification.Record {
	seen := make(map[string]bool, len(records))
	out := make([]*notification.Record, 0, len(records))
	for _, r := range records {
		key := OccurrenceKey(r)
		if key != "" && seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}
