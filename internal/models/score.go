package models

import "errors"

// Badge tiers derived from the total score. Thresholds are closed-above and
// cover the full [0,100] range with no overlap or gaps.
const (
	BadgeHotPick    = "Hot Pick"    // total >= 85
	BadgeTopRated   = "Top Rated"   // total >= 70
	BadgeGoodChoice = "Good Choice" // total >= 55
	BadgeAvailable  = "Available"   // everything else
)

// ScoreBreakdown holds the four sub-scores and weighted total of the
// NightOut Score for one (event, weather, time) triple. Breakdowns are
// computed fresh per request and never cached: the time sub-score is
// wall-clock dependent.
type ScoreBreakdown struct {
	Weather  int    `json:"weather"`
	Time     int    `json:"time"`
	Category int    `json:"category"`
	Venue    int    `json:"venue"`
	Total    int    `json:"total"`
	Badge    string `json:"badge"`
}

// BadgeForTotal maps a total score to its badge tier.
func BadgeForTotal(total int) string {
	switch {
	case total >= 85:
		return BadgeHotPick
	case total >= 70:
		return BadgeTopRated
	case total >= 55:
		return BadgeGoodChoice
	default:
		return BadgeAvailable
	}
}

// Validate checks that all sub-scores and the total are within [0,100] and
// the badge matches the total.
func (b *ScoreBreakdown) Validate() error {
	for _, v := range []int{b.Weather, b.Time, b.Category, b.Venue, b.Total} {
		if v < 0 || v > 100 {
			return errors.New("score components must be between 0 and 100")
		}
	}
	if b.Badge != BadgeForTotal(b.Total) {
		return errors.New("badge must match the total score tier")
	}
	return nil
}
