// internal/app/dedup.go
package app

import (
	"sort"
	"time"
)

// DedupTTL is how long a fired or deferred key blocks re-creation.
const DedupTTL = 24 * time.Hour

// DedupEntry is a persisted (key, timestamp) pair.
type DedupEntry struct {
	Key string    `json:"key"`
	At  time.Time `json:"ts"`
}

// DedupGuard tracks keys that already fired and keys deferred by quiet hours.
// It is not safe for concurrent use; the engine serializes access.
type DedupGuard struct {
	sent     map[string]time.Time
	deferred map[string]time.Time
}

func NewDedupGuard() *DedupGuard {
	return &DedupGuard{
		sent:     make(map[string]time.Time),
		deferred: make(map[string]time.Time),
	}
}

// ShouldFire purges expired entries and reports whether key is free.
// The caller must mark the key before releasing the engine lock.
func (g *DedupGuard) ShouldFire(key string, now time.Time) bool {
	g.Cleanup(now)
	if _, ok := g.sent[key]; ok {
		return false
	}
	if _, ok := g.deferred[key]; ok {
		return false
	}
	return true
}

func (g *DedupGuard) MarkSent(key string, now time.Time) {
	delete(g.deferred, key)
	g.sent[key] = now
}

func (g *DedupGuard) MarkDeferred(key string, now time.Time) {
	delete(g.sent, key)
	g.deferred[key] = now
}

// Promote moves a deferred key into the sent map once its record is flushed.
func (g *DedupGuard) Promote(key string, now time.Time) {
	delete(g.deferred, key)
	g.sent[key] = now
}

// Cleanup drops entries older than DedupTTL and returns how many were removed.
func (g *DedupGuard) Cleanup(now time.Time) int {
	removed := 0
	for _, m := range []map[string]time.Time{g.sent, g.deferred} {
		for k, at := range m {
			if now.Sub(at) >= DedupTTL {
				delete(m, k)
				removed++
			}
		}
	}
	return removed
}

// Len returns the number of sent and deferred keys.
func (g *DedupGuard) Len() (sent, deferred int) {
	return len(g.sent), len(g.deferred)
}

// Export returns both maps as entry lists, newest first, capped to limit each (0 = no cap).
func (g *DedupGuard) Export(limit int) (sent, deferred []DedupEntry) {
	return exportEntries(g.sent, limit), exportEntries(g.deferred, limit)
}

// Import rehydrates the guard from a snapshot, skipping entries already expired at now.
func (g *DedupGuard) Import(sent, deferred []DedupEntry, now time.Time) {
	for _, e := range sent {
		if now.Sub(e.At) < DedupTTL {
			g.sent[e.Key] = e.At
		}
	}
	for _, e := range deferred {
		if now.Sub(e.At) < DedupTTL {
			g.deferred[e.Key] = e.At
		}
	}
}

func exportEntries(m map[string]time.Time, limit int) []DedupEntry {
	out := make([]DedupEntry, 0, len(m))
	for k, at := range m {
		out = append(out, DedupEntry{Key: k, At: at})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].At.Equal(out[j].At) {
			return out[i].Key < out[j].Key
		}
		return out[i].At.After(out[j].At)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
