package models

import (
	"errors"
	"time"
)

// CatalogSnapshot is a point-in-time capture of the event catalog. A snapshot
// is internally consistent: every event was captured in the same fetch cycle.
// Snapshots are superseded wholesale by the next successful refresh, never
// merged or mutated field-by-field.
type CatalogSnapshot struct {
	Events    []Event   `json:"events"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Age returns how old the snapshot is relative to now.
func (s *CatalogSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}

// IsStale reports whether the snapshot is older than the given threshold.
// Staleness is advisory: a stale snapshot is still served while a refresh
// runs in the background.
func (s *CatalogSnapshot) IsStale(now time.Time, threshold time.Duration) bool {
	return s.Age(now) > threshold
}

// Validate checks that the snapshot and every event in it are valid.
func (s *CatalogSnapshot) Validate() error {
	if s.FetchedAt.IsZero() {
		return errors.New("snapshot fetched at must not be zero")
	}
	if s.FetchedAt.After(time.Now().Add(time.Minute)) {
		return errors.New("snapshot fetched at must not be in the future")
	}
	for i := range s.Events {
		if err := s.Events[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
