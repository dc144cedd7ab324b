// Package recommend composes the final recommendation set: it filters the
// catalog by elicited preferences, optionally narrows candidates via the LLM
// shortlister, ranks with the NightOut Score, and augments the survivors with
// map-lookup links.
//
// The composer enforces the no-fabrication invariant: every recommendation it
// returns corresponds verbatim to an event in the input catalog. Shortlist
// suggestions that fail identity verification are silently dropped and logged.
package recommend

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/nightowl-app/nightowl/internal/logger"
	"github.com/nightowl-app/nightowl/internal/models"
	"github.com/nightowl-app/nightowl/internal/scoring"
)

// Shortlister narrows candidates via an external model. Implementations are
// untrusted: returned titles are verified against the catalog before use.
type Shortlister interface {
	Shortlist(ctx context.Context, prefs models.Preferences, events []models.Event, limit int) ([]string, error)
}

// Composer builds bounded, ranked recommendation sets.
type Composer struct {
	shortlister Shortlister // nil disables the LLM step
	maxResults  int
	city        string
}

// New creates a Composer. shortlister may be nil, in which case candidates go
// straight from filtering to scoring.
func New(shortlister Shortlister, maxResults int, city string) *Composer {
	if maxResults < 1 {
		maxResults = 3
	}
	return &Composer{
		shortlister: shortlister,
		maxResults:  maxResults,
		city:        city,
	}
}

// moodCategories biases filtering toward categories matching each mood.
// The bias is soft: non-matching events are kept, just ordered after matches,
// so a niche mood never empties the result set.
var moodCategories = map[string][]string{
	"chill":       {"food & drink", "film", "exhibitions", "arts & crafts", "theatre"},
	"party":       {"nightlife", "music", "festivals", "comedy"},
	"romantic":    {"food & drink", "theatre", "film", "music"},
	"adventurous": {"gaming", "active", "tour", "workshops", "nightlife"},
}

// Compose returns at most maxResults recommendations drawn from the snapshot.
// A nil weather snapshot degrades to neutral weather scoring; a shortlister
// failure degrades to catalog-only composition. A nil or empty snapshot
// yields an empty list, never an error.
func (c *Composer) Compose(ctx context.Context, prefs models.Preferences, snapshot *models.CatalogSnapshot, weather *models.WeatherSnapshot, now time.Time) []models.Recommendation {
	if snapshot == nil || len(snapshot.Events) == 0 {
		return []models.Recommendation{}
	}

	candidates := c.filterByPreferences(prefs, snapshot.Events)

	if c.shortlister != nil {
		candidates = c.applyShortlist(ctx, prefs, candidates)
	}

	ranked := scoring.Rank(candidates, weather, now)
	if len(ranked) > c.maxResults {
		ranked = ranked[:c.maxResults]
	}

	recommendations := make([]models.Recommendation, 0, len(ranked))
	for _, r := range ranked {
		recommendations = append(recommendations, models.Recommendation{
			Kind:      models.KindEvent,
			Event:     r.Event,
			Score:     r.Score,
			MapURL:    c.mapURL(r.Event.Venue),
			DateLabel: dateLabel(r.Event.StartTime),
		})
	}
	return recommendations
}

// filterByPreferences applies the soft mood bias: events whose tags match the
// mood's categories (or the mood text itself) come first, everything else
// follows in catalog order. Budget is advisory only since the catalog carries
// no pricing.
func (c *Composer) filterByPreferences(prefs models.Preferences, events []models.Event) []models.Event {
	keywords := moodCategories[strings.ToLower(strings.TrimSpace(prefs.Mood))]
	if mood := strings.ToLower(strings.TrimSpace(prefs.Mood)); mood != "" {
		keywords = append(keywords, mood)
	}
	if len(keywords) == 0 {
		return events
	}

	matched := make([]models.Event, 0, len(events))
	rest := make([]models.Event, 0, len(events))
	for _, event := range events {
		if matchesAny(&event, keywords) {
			matched = append(matched, event)
		} else {
			rest = append(rest, event)
		}
	}
	return append(matched, rest...)
}

func matchesAny(event *models.Event, keywords []string) bool {
	for _, kw := range keywords {
		if event.HasTag(kw) {
			return true
		}
	}
	return false
}

// applyShortlist narrows candidates to the shortlister's picks. Every pick is
// verified against the candidate set by exact title match and resolved to the
// corresponding catalog event; unverifiable picks are dropped. If the
// shortlist fails or nothing survives verification, the full candidate set is
// kept so composition still proceeds.
func (c *Composer) applyShortlist(ctx context.Context, prefs models.Preferences, candidates []models.Event) []models.Event {
	titles, err := c.shortlister.Shortlist(ctx, prefs, candidates, c.maxResults)
	if err != nil {
		logger.Warn("Shortlist unavailable, composing from catalog only: %v", err)
		return candidates
	}

	byTitle := make(map[string][]models.Event)
	for _, event := range candidates {
		key := strings.ToLower(strings.TrimSpace(event.Title))
		byTitle[key] = append(byTitle[key], event)
	}

	seen := make(map[string]bool)
	var verified []models.Event
	for _, title := range titles {
		key := strings.ToLower(strings.TrimSpace(title))
		matches, ok := byTitle[key]
		if !ok {
			// Fabricated or mangled suggestion. Never surfaced to the user.
			logger.Debug("Dropping shortlist suggestion with no catalog match: %q", title)
			continue
		}
		for _, event := range matches {
			if id := event.Identity(); !seen[id] {
				seen[id] = true
				verified = append(verified, event)
			}
		}
	}

	if len(verified) == 0 {
		logger.Debug("No shortlist suggestions survived verification, keeping %d candidates", len(candidates))
		return candidates
	}
	return verified
}

// mapURL builds a map-search link for a venue, qualified by city.
func (c *Composer) mapURL(venue string) string {
	query := url.QueryEscape(strings.TrimSpace(venue + " " + c.city))
	return "https://www.google.com/maps/search/?api=1&query=" + query
}

func dateLabel(start *time.Time) string {
	if start == nil {
		return "Date TBC"
	}
	return start.Format("Mon 2 Jan, 15:04")
}
