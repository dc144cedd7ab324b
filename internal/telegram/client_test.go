package telegram

import (
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightowl-app/nightowl/internal/chat"
	"github.com/nightowl-app/nightowl/internal/models"
)

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"plain text", "plain text"},
		{"What's On - Glasgow!", "What's On \\- Glasgow\\!"},
		{"score (93)", "score \\(93\\)"},
		{"a_b*c", "a\\_b\\*c"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, escapeMarkdownV2(tt.input), "input: %q", tt.input)
	}
}

func TestFormatRecommendation(t *testing.T) {
	start := time.Date(2026, 8, 30, 19, 0, 0, 0, time.UTC)
	rec := models.Recommendation{
		Kind: models.KindEvent,
		Event: models.Event{
			Title:     "Comedy Night!",
			StartTime: &start,
			Venue:     "The Stand",
			Tags:      []string{"comedy", "nightlife"},
			SourceURL: "https://www.whatsonglasgow.co.uk/event/101",
		},
		Score:     models.ScoreBreakdown{Total: 93, Badge: models.BadgeHotPick},
		MapURL:    "https://www.google.com/maps/search/?api=1&query=The+Stand+Glasgow",
		DateLabel: "Sun 30 Aug, 19:00",
	}

	out := formatRecommendation(1, rec)

	// The title links to the listing, the venue links to the map.
	assert.Contains(t, out, "[Comedy Night\\!](https://www.whatsonglasgow.co.uk/event/101)")
	assert.Contains(t, out, "[The Stand](https://www.google.com/maps/search/?api=1&query=The+Stand+Glasgow)")
	assert.Contains(t, out, "*93*")
	assert.Contains(t, out, "Hot Pick")
	assert.Contains(t, out, "comedy, nightlife")
	assert.Contains(t, out, escapeMarkdownV2("Sun 30 Aug, 19:00"))
}

func TestFormatRecommendationWithoutLinkOrTags(t *testing.T) {
	rec := models.Recommendation{
		Kind:      models.KindEvent,
		Event:     models.Event{Title: "Open Mic", Venue: "Basement Bar"},
		Score:     models.ScoreBreakdown{Total: 58, Badge: models.BadgeGoodChoice},
		MapURL:    "https://www.google.com/maps/search/?api=1&query=Basement+Bar+Glasgow",
		DateLabel: "Date TBC",
	}

	out := formatRecommendation(2, rec)
	assert.Contains(t, out, "2\\. Open Mic")
	assert.NotContains(t, out, "[Open Mic]")
	assert.NotContains(t, out, "🏷")
}

func TestFormatResponse(t *testing.T) {
	c := &Client{}
	resp := chat.Response{
		Reply: "Here's the plan.",
		Recommendations: []models.Recommendation{
			{Event: models.Event{Title: "Club Takeover", Venue: "Sub Club"}, DateLabel: "Date TBC"},
			{Event: models.Event{Title: "Quiz Night", Venue: "The Flying Duck"}, DateLabel: "Date TBC"},
		},
	}

	out := c.formatResponse(resp)
	assert.Contains(t, out, escapeMarkdownV2("Here's the plan."))
	assert.Contains(t, out, "1\\. Club Takeover")
	assert.Contains(t, out, "2\\. Quiz Night")
}

func TestQuickReplyKeyboard(t *testing.T) {
	assert.Nil(t, quickReplyKeyboard(nil))

	kb, ok := quickReplyKeyboard([]string{"Just me", "With friends"}).(tgbotapi.ReplyKeyboardMarkup)
	require.True(t, ok)
	assert.True(t, kb.OneTimeKeyboard)
	require.Len(t, kb.Keyboard, 1)
	require.Len(t, kb.Keyboard[0], 2)
	assert.Equal(t, "Just me", kb.Keyboard[0][0].Text)
	assert.Equal(t, "With friends", kb.Keyboard[0][1].Text)
}

func TestSessionMapping(t *testing.T) {
	c := &Client{sessions: make(map[int64]string)}

	assert.Empty(t, c.sessionFor(42))
	c.rememberSession(42, "abc")
	assert.Equal(t, "abc", c.sessionFor(42))

	c.resetSession(42)
	assert.Empty(t, c.sessionFor(42))
}
