// internal/app/snapshot.go
package app

import (
	"encoding/json"
	"fmt"
	"time"

	"case_reminder_engine/internal/domain/preference"
)

const (
	RuntimeStateKey     = "engine:runtime"
	PreferencesStateKey = "engine:preferences"

	runtimeSnapshotVersion     = 2
	preferencesSnapshotVersion = 1
)

// RuntimeSnapshot is the persisted engine runtime state.
// Version 1 stored dedup keys as bare strings without timestamps.
type RuntimeSnapshot struct {
	Version                  int          `json:"version"`
	SavedAt                  time.Time    `json:"savedAt"`
	LastBriefingDateKey      string       `json:"lastBriefingDateKey,omitempty"`
	LastWeeklySummaryDateKey string       `json:"lastWeeklySummaryDateKey,omitempty"`
	SentDedupKeys            []DedupEntry `json:"sentDedupKeys"`
	DeferredDedupKeys        []DedupEntry `json:"deferredDedupKeys"`
}

type runtimeSnapshotV1 struct {
	Version                  int       `json:"version"`
	SavedAt                  time.Time `json:"savedAt"`
	LastBriefingDateKey      string    `json:"lastBriefingDateKey"`
	LastWeeklySummaryDateKey string    `json:"lastWeeklySummaryDateKey"`
	SentDedupKeys            []string  `json:"sentDedupKeys"`
	DeferredDedupKeys        []string  `json:"deferredDedupKeys"`
}

// DecodeRuntimeSnapshot parses a runtime blob and migrates older versions.
// Untimestamped v1 keys are stamped with the snapshot's save time, or now when unknown.
func DecodeRuntimeSnapshot(data []byte, now time.Time) (*RuntimeSnapshot, error) {
	var head struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to decode runtime snapshot: %w", err)
	}
	switch {
	case head.Version == runtimeSnapshotVersion:
		var snap RuntimeSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("failed to decode runtime snapshot v%d: %w", head.Version, err)
		}
		return &snap, nil
	case head.Version <= 1:
		var old runtimeSnapshotV1
		if err := json.Unmarshal(data, &old); err != nil {
			return nil, fmt.Errorf("failed to decode runtime snapshot v1: %w", err)
		}
		stamp := old.SavedAt
		if stamp.IsZero() {
			stamp = now
		}
		return &RuntimeSnapshot{
			Version:                  runtimeSnapshotVersion,
			SavedAt:                  old.SavedAt,
			LastBriefingDateKey:      old.LastBriefingDateKey,
			LastWeeklySummaryDateKey: old.LastWeeklySummaryDateKey,
			SentDedupKeys:            stampKeys(old.SentDedupKeys, stamp),
			DeferredDedupKeys:        stampKeys(old.DeferredDedupKeys, stamp),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported runtime snapshot version %d", head.Version)
	}
}

func stampKeys(keys []string, at time.Time) []DedupEntry {
	out := make([]DedupEntry, 0, len(keys))
	for _, k := range keys {
		out = append(out, DedupEntry{Key: k, At: at})
	}
	return out
}

// PreferencesSnapshot is the persisted preferences blob.
type PreferencesSnapshot struct {
	Version    int                    `json:"version"`
	SavedAt    time.Time              `json:"savedAt"`
	Recipients []preference.Recipient `json:"recipients"`
}

func DecodePreferencesSnapshot(data []byte) (*PreferencesSnapshot, error) {
	var snap PreferencesSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode preferences snapshot: %w", err)
	}
	if snap.Version > preferencesSnapshotVersion {
		return nil, fmt.Errorf("unsupported preferences snapshot version %d", snap.Version)
	}
	snap.Version = preferencesSnapshotVersion
	return &snap, nil
}
