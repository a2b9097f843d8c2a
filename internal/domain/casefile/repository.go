package casefile

import (
	"context"
	"errors"
	"time"
)

// ErrContactNotFound is returned by a Directory for an unknown recipient id.
var ErrContactNotFound = errors.New("contact not found")

// Source fetches the case data the engine evaluates on a tick.
type Source interface {
	Snapshot(ctx context.Context, now time.Time) (*Snapshot, error)
}

// Directory resolves a recipient id into channel addresses.
type Directory interface {
	Contact(ctx context.Context, id string) (*Contact, error)
}
