// internal/app/audit.go
package app

import (
	"context"

	"case_reminder_engine/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

// auditLog buffers entries produced while the engine lock is held
// so that the sink is written to after the lock is released.
type auditLog struct {
	sink    notification.AuditSink
	logger  *logrus.Entry
	pending []notification.AuditEntry
}

func (a *auditLog) record(entry notification.AuditEntry) {
	a.pending = append(a.pending, entry)
}

func (a *auditLog) take() []notification.AuditEntry {
	out := a.pending
	a.pending = nil
	return out
}

// write is best-effort: sink failures are logged and never reach the dispatch path.
func (a *auditLog) write(ctx context.Context, entries []notification.AuditEntry) {
	if a.sink == nil {
		return
	}
	for _, entry := range entries {
		if err := a.sink.AppendAuditEntry(ctx, entry); err != nil {
			a.logger.WithError(err).WithFields(logrus.Fields{
				"audit_category": entry.Category,
				"severity":       entry.Severity,
			}).Warn("Failed to append audit entry")
		}
	}
}

func recordMetadata(rec *notification.Record) map[string]string {
	md := map[string]string{
		"record_id":    rec.ID,
		"recipient_id": rec.RecipientID,
		"category":     string(rec.Category),
		"channel":      string(rec.Channel),
		"priority":     string(rec.Priority),
		"status":       string(rec.Status),
		"dedup_key":    rec.DedupKey,
	}
	if rec.MatterID != "" {
		md["matter_id"] = rec.MatterID
	}
	if rec.DigestID != "" {
		md["digest_id"] = rec.DigestID
	}
	if rec.Error != "" {
		md["error"] = rec.Error
	}
	return md
}
