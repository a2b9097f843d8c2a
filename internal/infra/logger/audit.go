package logger

import (
	"context"
	"errors"

	"case_reminder_engine/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

// AuditSink writes audit entries as structured log lines.
type AuditSink struct {
	entry *logrus.Entry
}

func NewAuditSink(base *logrus.Logger) *AuditSink {
	return &AuditSink{entry: base.WithField("component", "audit")}
}

func (s *AuditSink) AppendAuditEntry(_ context.Context, e notification.AuditEntry) error {
	fields := logrus.Fields{
		"audit_category": e.Category,
		"severity":       e.Severity,
		"at":             e.At,
	}
	for k, v := range e.Metadata {
		fields["md_"+k] = v
	}
	l := s.entry.WithFields(fields)
	switch e.Severity {
	case notification.SeverityError:
		l.Error(e.Details)
	case notification.SeverityWarning:
		l.Warn(e.Details)
	default:
		l.Info(e.Details)
	}
	return nil
}

// MultiAudit fans an entry out to several sinks and joins their errors.
type MultiAudit []notification.AuditSink

func (m MultiAudit) AppendAuditEntry(ctx context.Context, e notification.AuditEntry) error {
	var errs []error
	for _, s := range m {
		if err := s.AppendAuditEntry(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
