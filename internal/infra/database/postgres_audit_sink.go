package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"case_reminder_engine/internal/domain/notification"
)

// PostgresAuditSink appends audit entries to the audit_log table.
type PostgresAuditSink struct {
	db *sql.DB
}

func NewPostgresAuditSink(db *sql.DB) *PostgresAuditSink {
	return &PostgresAuditSink{db: db}
}

func (s *PostgresAuditSink) AppendAuditEntry(ctx context.Context, e notification.AuditEntry) error {
	md := e.Metadata
	if md == nil {
		md = map[string]string{}
	}
	metadata, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("error encoding audit metadata: %w", err)
	}
	query := `INSERT INTO audit_log (category, severity, details, metadata, created_at)
               VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.db.ExecContext(ctx, query, e.Category, string(e.Severity), e.Details, metadata, e.At); err != nil {
		return fmt.Errorf("error appending audit entry %q: %w", e.Category, err)
	}
	return nil
}
