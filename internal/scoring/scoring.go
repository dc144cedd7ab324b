// Package scoring computes the NightOut Score: a weighted four-factor score
// ranking events by how good a pick they are right now.
//
//	total = weather×0.40 + time×0.30 + category×0.20 + venue×0.10
//
// The weather factor favours indoor events in rain and outdoor events in fair
// weather. The time factor favours events starting within the next few hours.
// The category and venue factors reward nightlife-adjacent tags and venue
// names. Each sub-score lives in [0,100]; the total is rounded and clamped to
// the same range, then mapped to a badge tier.
//
// Score is a pure function of its inputs: scoring the same (event, weather,
// time) triple twice yields an identical breakdown.
package scoring

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/nightowl-app/nightowl/internal/models"
)

// Sub-score weights, fixed by design.
const (
	weatherWeight  = 0.40
	timeWeight     = 0.30
	categoryWeight = 0.20
	venueWeight    = 0.10
)

// neutralScore is the default sub-score when the relevant input is absent.
const neutralScore = 50

// indoorKeywords classify an event as indoor when any tag matches.
var indoorKeywords = []string{
	"theatre", "museum", "gallery", "cinema", "comedy", "club", "bar", "pub",
	"restaurant", "arcade", "bowling", "exhibition", "art", "shopping", "indoor",
}

// popularCategories are tags that score well regardless of weather.
var popularCategories = []string{
	"music", "nightlife", "live music", "club", "bar", "concert", "comedy",
	"theatre", "food & drink", "party", "dj",
}

// popularVenueKeywords reward recognisable night-out venue names.
var popularVenueKeywords = []string{
	"club", "arena", "theatre", "hall", "bar", "pub", "live", "festival",
}

// Score computes the NightOut Score breakdown for one event. A nil weather
// snapshot yields the neutral weather sub-score; a missing start time yields
// the neutral time sub-score.
func Score(event *models.Event, weather *models.WeatherSnapshot, now time.Time) models.ScoreBreakdown {
	w := weatherScore(event, weather)
	t := timeScore(event, now)
	c := categoryScore(event)
	v := venueScore(event)

	total := int(math.Round(float64(w)*weatherWeight + float64(t)*timeWeight + float64(c)*categoryWeight + float64(v)*venueWeight))
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}

	return models.ScoreBreakdown{
		Weather:  w,
		Time:     t,
		Category: c,
		Venue:    v,
		Total:    total,
		Badge:    models.BadgeForTotal(total),
	}
}

// Rank scores every event and returns them sorted by total descending.
// The sort is stable: events with equal totals keep their catalog order, so
// ranking is fully deterministic with no secondary tiebreak.
func Rank(events []models.Event, weather *models.WeatherSnapshot, now time.Time) []Ranked {
	ranked := make([]Ranked, len(events))
	for i := range events {
		ranked[i] = Ranked{Event: events[i], Score: Score(&events[i], weather, now)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score.Total > ranked[j].Score.Total
	})
	return ranked
}

// Ranked pairs an event with its score breakdown.
type Ranked struct {
	Event models.Event
	Score models.ScoreBreakdown
}

// IsIndoor classifies an event by matching its tags against the indoor
// keyword set. Events with no matching tag are treated as outdoor.
func IsIndoor(event *models.Event) bool {
	for _, kw := range indoorKeywords {
		if event.HasTag(kw) {
			return true
		}
	}
	return false
}

func weatherScore(event *models.Event, weather *models.WeatherSnapshot) int {
	if weather == nil {
		return neutralScore
	}

	indoor := IsIndoor(event)
	switch {
	case weather.IsRaining:
		if indoor {
			return 95
		}
		return 30
	case weather.IsOutdoorFriendly:
		if indoor {
			return 60
		}
		return 95
	default:
		if indoor {
			return 70
		}
		return 55
	}
}

func timeScore(event *models.Event, now time.Time) int {
	if event.StartTime == nil {
		return neutralScore
	}

	hoursUntil := event.StartTime.Sub(now).Hours()
	switch {
	case hoursUntil < 0:
		return 20 // already started or passed
	case hoursUntil <= 3:
		return 100
	case hoursUntil <= 6:
		return 85
	case hoursUntil <= 12:
		return 65
	case hoursUntil <= 24:
		return 40
	default:
		return 25
	}
}

func categoryScore(event *models.Event) int {
	if len(event.Tags) == 0 {
		return 40
	}
	for _, cat := range popularCategories {
		if event.HasTag(cat) {
			return 85
		}
	}
	return 60
}

func venueScore(event *models.Event) int {
	haystack := strings.ToLower(event.Venue + " " + event.Title)
	for _, kw := range popularVenueKeywords {
		if strings.Contains(haystack, kw) {
			return 80
		}
	}
	return 50
}
