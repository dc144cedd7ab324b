package chat

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nightowl-app/nightowl/internal/models"
)

// moodKeywords maps canonical moods to trigger phrases. Free text that
// matches no phrase is stored verbatim: the vocabulary is open.
var moodKeywords = map[string][]string{
	"chill":       {"chill", "relax", "calm", "quiet", "laid back", "easy", "casual"},
	"party":       {"party", "dance", "club", "wild", "energetic", "crazy", "fun", "exciting"},
	"romantic":    {"romantic", "date", "couple", "intimate", "cosy", "cozy", "special"},
	"adventurous": {"adventure", "explore", "something new", "different", "unique", "karaoke", "bowling"},
}

// moodOrder keeps keyword matching deterministic across map iteration.
var moodOrder = []string{"chill", "party", "romantic", "adventurous"}

// ExtractMood maps free text to a canonical mood when a known phrase
// appears, otherwise returns the trimmed text itself. Returns "" only for
// blank input.
func ExtractMood(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return ""
	}
	for _, mood := range moodOrder {
		for _, kw := range moodKeywords[mood] {
			if strings.Contains(lower, kw) {
				return mood
			}
		}
	}
	return lower
}

var (
	numberRe = regexp.MustCompile(`\b(\d+)\b`)
	meAndRe  = regexp.MustCompile(`\bme\s+(?:and|&|\+)\s+(\d+)\b`)
)

var soloPhrases = []string{"solo", "just me", "alone", "myself", "on my own"}

// wordNumbers is ordered so that matching is deterministic when a message
// contains more than one number word.
var wordNumbers = []struct {
	word string
	n    int
}{
	{"one", 1}, {"two", 2}, {"three", 3}, {"four", 4}, {"five", 5},
	{"six", 6}, {"seven", 7}, {"eight", 8}, {"nine", 9}, {"ten", 10},
	{"couple", 2}, {"pair", 2}, {"few", 3},
}

// maxGroupSize rejects obviously wrong parses ("meet at 2030").
const maxGroupSize = 100

// ExtractGroupSize parses a party size from casual phrasing:
// "me and 3 mates" → 4, "just me" → 1, "four of us" → 4, "6" → 6.
// Returns (0, false) when no plausible size is found.
func ExtractGroupSize(text string) (int, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return 0, false
	}

	for _, phrase := range soloPhrases {
		if strings.Contains(lower, phrase) {
			return 1, true
		}
	}

	// "me and N ..." counts the speaker too.
	if m := meAndRe.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n >= 0 && n < maxGroupSize {
			return n + 1, true
		}
	}

	if m := numberRe.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n >= 1 && n <= maxGroupSize {
			return n, true
		}
	}

	for _, wn := range wordNumbers {
		if containsWord(lower, wn.word) {
			return wn.n, true
		}
	}

	return 0, false
}

var currencyRe = regexp.MustCompile(`[£$€]\s*(\d+)`)

// stripCurrencyAmounts removes currency-tagged numbers so a refinement like
// "make it £60" is not misread as a group size of 60.
func stripCurrencyAmounts(text string) string {
	return currencyRe.ReplaceAllString(text, "")
}

// Budget tier boundaries in whole currency units per person.
const (
	budgetLowMax    = 15
	budgetMediumMax = 35
)

var budgetWords = []struct {
	tier  models.BudgetTier
	words []string
}{
	{models.BudgetLow, []string{"cheap", "low", "tight", "budget", "free", "skint", "broke"}},
	{models.BudgetMedium, []string{"medium", "moderate", "mid", "normal", "average", "reasonable"}},
	{models.BudgetHigh, []string{"high", "expensive", "fancy", "splash", "treat", "posh", "no limit"}},
}

// ExtractBudget parses a budget tier from a qualitative term ("cheap",
// "fancy") or a numeric per-person amount ("£20", "about 40"). Returns
// (BudgetUnset, false) when nothing usable is found.
func ExtractBudget(text string) (models.BudgetTier, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return models.BudgetUnset, false
	}

	for _, group := range budgetWords {
		for _, w := range group.words {
			if strings.Contains(lower, w) {
				return group.tier, true
			}
		}
	}

	amount := 0
	if m := currencyRe.FindStringSubmatch(lower); m != nil {
		amount, _ = strconv.Atoi(m[1])
	} else if m := numberRe.FindStringSubmatch(lower); m != nil {
		// Bare number: accept only a plausible per-person spend.
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= 500 {
			amount = n
		}
	}
	if amount == 0 {
		return models.BudgetUnset, false
	}

	switch {
	case amount <= budgetLowMax:
		return models.BudgetLow, true
	case amount <= budgetMediumMax:
		return models.BudgetMedium, true
	default:
		return models.BudgetHigh, true
	}
}

func containsWord(s, word string) bool {
	idx := strings.Index(s, word)
	for idx >= 0 {
		before := idx == 0 || !isLetter(s[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx >= len(s) || !isLetter(s[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(s[idx+1:], word)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
