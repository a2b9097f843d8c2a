package casefile

import (
	"context"
	"sync"
	"time"
)

// Static is an in-memory Source and Directory, used for local runs and tests.
type Static struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewStatic wraps a snapshot.
func NewStatic(snap Snapshot) *Static {
	return &Static{snap: snap}
}

// Replace swaps the served snapshot.
func (s *Static) Replace(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
}

func (s *Static) Snapshot(_ context.Context, _ time.Time) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := s.snap
	return &cp, nil
}

func (s *Static) Contact(_ context.Context, id string) (*Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, list := range [][]Contact{s.snap.Lawyers, s.snap.Clients} {
		for _, c := range list {
			if c.ID == id {
				cp := c
				return &cp, nil
			}
		}
	}
	return nil, ErrContactNotFound
}
