package models

// RecommendationKind discriminates recommendation payload variants. The chat
// payload is a tagged union rather than field-presence sniffing; today only
// events are recommended, but the kind field keeps the wire shape extensible.
type RecommendationKind string

const (
	// KindEvent marks a recommendation backed by a catalog event.
	KindEvent RecommendationKind = "event"
)

// Recommendation is one ranked, augmented entry returned to the user.
// Every recommendation corresponds verbatim to a catalog event; venues or
// events are never fabricated.
type Recommendation struct {
	Kind      RecommendationKind `json:"kind"`
	Event     Event              `json:"event"`
	Score     ScoreBreakdown     `json:"score"`
	MapURL    string             `json:"map_url"`    // map search link for the venue
	DateLabel string             `json:"date_label"` // human-readable start time, "Date TBC" when unknown
}
