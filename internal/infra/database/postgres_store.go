package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"case_reminder_engine/internal/domain/notification"
)

// PostgresStore keeps engine blobs in the kv_store table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM kv_store WHERE key = $1`
	var value []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notification.ErrNotFound
		}
		return nil, fmt.Errorf("error getting key %q: %w", key, err)
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	query := `INSERT INTO kv_store (key, value, updated_at)
               VALUES ($1, $2, NOW())
               ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("error setting key %q: %w", key, err)
	}
	return nil
}
