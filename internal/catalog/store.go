// Package catalog provides the thread-safe event store. It owns the current
// catalog snapshot and its refresh policy: readers always get the last
// successfully fetched snapshot without blocking on network I/O, and a failed
// refresh never disturbs the snapshot being served (stale-but-available).
//
// Snapshot replacement is atomic: a reader sees either the old or the new
// snapshot in full, never a catalog mixing two fetch cycles.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nightowl-app/nightowl/internal/logger"
	"github.com/nightowl-app/nightowl/internal/models"
)

// Source produces a fresh sequence of events on demand. Implementations are
// expected to be slow (network) and fallible; the store isolates callers from
// both.
type Source interface {
	Fetch(ctx context.Context) ([]models.Event, error)
}

// Store holds the current catalog snapshot and coordinates refreshes.
type Store struct {
	source     Source
	staleAfter time.Duration
	timeout    time.Duration
	maxEvents  int

	mu       sync.RWMutex
	snapshot *models.CatalogSnapshot

	refreshing sync.Mutex // single-flight guard for background refreshes
	inFlight   bool
}

// New creates a Store with no snapshot. The first successful Refresh
// populates it; until then Get returns nil.
func New(source Source, staleAfter, timeout time.Duration, maxEvents int) *Store {
	return &Store{
		source:     source,
		staleAfter: staleAfter,
		timeout:    timeout,
		maxEvents:  maxEvents,
	}
}

// StaleAfter returns the configured staleness threshold.
func (s *Store) StaleAfter() time.Duration {
	return s.staleAfter
}

// Get returns the last successfully fetched snapshot, or nil before the
// first successful refresh. Never performs I/O.
func (s *Store) Get() *models.CatalogSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// GetOrRefresh returns the current snapshot and, if it is stale, kicks off an
// asynchronous refresh. Staleness is advisory: the stale snapshot is returned
// immediately rather than blocking the caller on the network.
func (s *Store) GetOrRefresh(ctx context.Context) *models.CatalogSnapshot {
	snap := s.Get()
	if snap != nil && !snap.IsStale(time.Now(), s.staleAfter) {
		return snap
	}

	s.refreshing.Lock()
	alreadyRunning := s.inFlight
	if !alreadyRunning {
		s.inFlight = true
	}
	s.refreshing.Unlock()

	if !alreadyRunning {
		go func() {
			defer func() {
				s.refreshing.Lock()
				s.inFlight = false
				s.refreshing.Unlock()
			}()
			// Detach from the request context: the refresh should outlive
			// the request that happened to trigger it.
			if err := s.Refresh(context.Background()); err != nil {
				logger.Warn("Background catalog refresh failed: %v", err)
			}
		}()
	}

	return snap
}

// Refresh fetches a new snapshot from the source and atomically replaces the
// stored one. On failure the existing snapshot is left untouched and a
// recoverable error is returned.
func (s *Store) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	events, err := s.source.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("catalog fetch failed: %w", err)
	}

	events = dedupe(events)
	if s.maxEvents > 0 && len(events) > s.maxEvents {
		events = events[:s.maxEvents]
	}

	snap := &models.CatalogSnapshot{
		Events:    events,
		FetchedAt: time.Now(),
	}
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	logger.Info("Catalog refreshed: %d events", len(events))
	return nil
}

// Categories returns the distinct primary categories in the current snapshot,
// sorted alphabetically. Returns an empty slice before the first refresh.
func (s *Store) Categories() []string {
	snap := s.Get()
	if snap == nil {
		return []string{}
	}
	return DistinctCategories(snap.Events)
}

// Filter returns the events in the current snapshot matching an optional
// category and an optional free-text query against title and venue. Both
// filters are case-insensitive; empty filters match everything.
func (s *Store) Filter(category, query string) []models.Event {
	snap := s.Get()
	if snap == nil {
		return []models.Event{}
	}
	return FilterEvents(snap.Events, category, query)
}

// DistinctCategories returns the distinct lowercase primary categories of the
// given events, sorted alphabetically. Callers that already hold a snapshot
// use this directly so every derived value comes from the same fetch cycle.
func DistinctCategories(events []models.Event) []string {
	seen := make(map[string]bool)
	for i := range events {
		cat := strings.ToLower(strings.TrimSpace(events[i].Category))
		if cat != "" {
			seen[cat] = true
		}
	}

	categories := make([]string, 0, len(seen))
	for cat := range seen {
		categories = append(categories, cat)
	}
	sort.Strings(categories)
	return categories
}

// FilterEvents applies the category and free-text filters to the given events.
func FilterEvents(events []models.Event, category, query string) []models.Event {
	category = strings.ToLower(strings.TrimSpace(category))
	query = strings.ToLower(strings.TrimSpace(query))

	filtered := make([]models.Event, 0, len(events))
	for _, event := range events {
		if category != "" && !event.HasTag(category) {
			continue
		}
		if query != "" {
			haystack := strings.ToLower(event.Title + " " + event.Venue)
			if !strings.Contains(haystack, query) {
				continue
			}
		}
		filtered = append(filtered, event)
	}
	return filtered
}

// dedupe drops events sharing an identity with an earlier event, preserving
// first-seen order.
func dedupe(events []models.Event) []models.Event {
	seen := make(map[string]bool, len(events))
	out := make([]models.Event, 0, len(events))
	for _, event := range events {
		id := event.Identity()
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, event)
	}
	return out
}
