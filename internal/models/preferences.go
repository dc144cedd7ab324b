package models

// BudgetTier buckets a user's per-person budget into three bands.
type BudgetTier string

const (
	BudgetUnset  BudgetTier = ""
	BudgetLow    BudgetTier = "low"
	BudgetMedium BudgetTier = "medium"
	BudgetHigh   BudgetTier = "high"
)

// Preferences accumulates what the conversation has elicited so far.
// Zero values mean "not yet provided".
type Preferences struct {
	Mood      string     `json:"mood,omitempty"`
	GroupSize int        `json:"group_size,omitempty"`
	Budget    BudgetTier `json:"budget,omitempty"`
}

// Complete reports whether every preference needed for a recommendation has
// been collected.
func (p *Preferences) Complete() bool {
	return p.Mood != "" && p.GroupSize > 0 && p.Budget != BudgetUnset
}
