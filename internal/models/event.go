// Package models defines the core domain entities for the nightowl application.
// These models represent scraped events, catalog snapshots, weather readings,
// and scored recommendations. Models that cross a trust boundary include
// built-in validation to ensure data integrity throughout the application.
//
// Terminology:
//   - Event: a single entry scraped from the events listing (gig, show, club
//     night). Identified by the (title, start time, venue) tuple.
//   - Catalog: the full set of currently known events, replaced wholesale on
//     each successful refresh.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Event represents a single scraped event. Events are immutable once captured;
// a refresh produces new Event values rather than mutating existing ones.
type Event struct {
	Title       string     `json:"title"`
	StartTime   *time.Time `json:"start_time,omitempty"` // nil when the listing carries no parseable date
	Venue       string     `json:"venue"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category"`       // primary category
	Tags        []string   `json:"tags,omitempty"` // full category tag set, primary included
	SourceURL   string     `json:"source_url"`     // canonical listing page for this event
	ImageURL    string     `json:"image_url,omitempty"`
}

// Identity returns the stable identity key for this event: the
// (title, start time, venue) tuple. Identities are stable across refreshes so
// deduplication and shortlist verification can match events exactly.
func (e *Event) Identity() string {
	start := ""
	if e.StartTime != nil {
		start = e.StartTime.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%s|%s|%s", strings.ToLower(strings.TrimSpace(e.Title)), start, strings.ToLower(strings.TrimSpace(e.Venue)))
}

// HasTag reports whether any of the event's tags contains the given keyword
// (case-insensitive substring match).
func (e *Event) HasTag(keyword string) bool {
	keyword = strings.ToLower(keyword)
	for _, tag := range e.Tags {
		if strings.Contains(strings.ToLower(tag), keyword) {
			return true
		}
	}
	return false
}

// Validate checks that the event carries the minimum fields the catalog
// source is required to provide. Start time and category are optional.
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return errors.New("event title must not be empty")
	}
	if strings.TrimSpace(e.Venue) == "" {
		return errors.New("event venue must not be empty")
	}
	if strings.TrimSpace(e.SourceURL) == "" {
		return errors.New("event source URL must not be empty")
	}
	return nil
}
