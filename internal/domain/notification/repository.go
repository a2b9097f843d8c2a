// internal/domain/notification/repository.go
package notification

import (
	"context"
	"errors"
	"time"
)

// ErrPermanent marks a channel failure that must not be retried
// (missing address, rejected payload). Adapters wrap it with %w.
var ErrPermanent = errors.New("permanent delivery failure")

// ErrNotFound is returned by a Store when the key does not exist.
var ErrNotFound = errors.New("key not found")

// SendResult is what a channel adapter reports for a successful hand-off.
type SendResult struct {
	OK      bool
	Message string
	// Delivered is set by channels that confirm delivery at hand-off (in-app, portal).
	Delivered bool
}

// Sender is the capability every channel adapter implements.
type Sender interface {
	Channel() Channel
	Send(ctx context.Context, rec Record) (SendResult, error)
}

// Store is the key-value persistence the engine snapshots into.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// AuditEntry describes a fan-out, deferral, flush or terminal failure.
type AuditEntry struct {
	Category string
	Severity Severity
	Details  string
	Metadata map[string]string
	At       time.Time
}

// AuditSink records every fired or suppressed notification.
type AuditSink interface {
	AppendAuditEntry(ctx context.Context, entry AuditEntry) error
}
