package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/nightowl-app/nightowl/internal/catalog"
	"github.com/nightowl-app/nightowl/internal/logger"
	"github.com/nightowl-app/nightowl/internal/models"
	"github.com/nightowl-app/nightowl/internal/recommend"
)

// WeatherProvider supplies the current weather snapshot. A nil provider or a
// provider error degrades to neutral weather scoring.
type WeatherProvider interface {
	Current(ctx context.Context) (*models.WeatherSnapshot, error)
}

// Response is the engine's reply to one inbound message.
type Response struct {
	SessionID       string                  `json:"session_id"`
	Reply           string                  `json:"reply"`
	QuickReplies    []string                `json:"quick_replies,omitempty"`
	Recommendations []models.Recommendation `json:"recommendations,omitempty"`
	Stage           string                  `json:"stage"`
}

// Engine drives the per-session elicitation state machine and invokes the
// composer once enough preferences are gathered.
type Engine struct {
	sessions *SessionStore
	store    *catalog.Store
	weather  WeatherProvider
	composer *recommend.Composer
}

// NewEngine creates a conversation engine. weather may be nil.
func NewEngine(sessions *SessionStore, store *catalog.Store, weather WeatherProvider, composer *recommend.Composer) *Engine {
	return &Engine{
		sessions: sessions,
		store:    store,
		weather:  weather,
		composer: composer,
	}
}

// Sessions exposes the session store for TTL sweeps.
func (e *Engine) Sessions() *SessionStore {
	return e.sessions
}

// Handle processes one inbound message for the given session, creating the
// session when the identifier is empty or unknown. Messages for the same
// session are serialised; independent sessions progress concurrently.
func (e *Engine) Handle(ctx context.Context, sessionID, text string) Response {
	sess := e.sessions.GetOrCreate(sessionID)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.LastActive = time.Now()

	switch sess.Stage {
	case StageGreeting:
		return e.handleGreeting(sess, text)
	case StageMood:
		return e.handleMood(sess, text)
	case StageGroupSize:
		return e.handleGroupSize(sess, text)
	case StageBudget:
		return e.handleBudget(ctx, sess, text)
	case StageComplete:
		return e.handleRefinement(ctx, sess, text)
	default:
		sess.Stage = StageGreeting
		return e.handleGreeting(sess, text)
	}
}

func (e *Engine) handleGreeting(sess *Session, text string) Response {
	if !sess.Greeted {
		// First contact (any message, including a synthetic "start"): welcome
		// the user and ask solo-vs-group. The stage advances only once the
		// user answers.
		sess.Greeted = true
		return e.respond(sess,
			"Hey! I'm your night-out guide for Glasgow. Flying solo tonight or heading out with a group?",
			[]string{"Just me", "With friends"})
	}

	// The welcome has been answered; move into mood elicitation.
	sess.Stage = StageMood
	return e.respond(sess,
		"Nice! What kind of vibe are you after tonight?",
		[]string{"Chill", "Party", "Romantic", "Adventurous"})
}

func (e *Engine) handleMood(sess *Session, text string) Response {
	mood := ExtractMood(text)
	if mood == "" {
		return e.respond(sess,
			"Tell me the vibe you're going for: chill, party, romantic, something else entirely?",
			[]string{"Chill", "Party", "Romantic", "Adventurous"})
	}

	sess.Prefs.Mood = mood
	sess.Stage = StageGroupSize
	return e.respond(sess,
		fmt.Sprintf("Got it, %s it is. How many of you are going?", mood),
		[]string{"Just me", "2", "4", "6 or more"})
}

func (e *Engine) handleGroupSize(sess *Session, text string) Response {
	size, ok := ExtractGroupSize(text)
	if !ok {
		// Recoverable: re-prompt without advancing or touching stored prefs.
		return e.respond(sess,
			"Sorry, I didn't catch a number there. How many people are going? A plain number works fine.",
			[]string{"Just me", "2", "4", "6 or more"})
	}

	sess.Prefs.GroupSize = size
	sess.Stage = StageBudget
	return e.respond(sess,
		"And what's the budget per person? A rough figure or just cheap/moderate/fancy.",
		[]string{"Cheap", "Moderate", "Treat ourselves"})
}

func (e *Engine) handleBudget(ctx context.Context, sess *Session, text string) Response {
	tier, ok := ExtractBudget(text)
	if !ok {
		return e.respond(sess,
			"I couldn't work out a budget from that. Try an amount like £20, or say cheap, moderate, or fancy.",
			[]string{"Cheap", "Moderate", "Treat ourselves"})
	}

	sess.Prefs.Budget = tier
	sess.Stage = StageComplete
	return e.recommend(ctx, sess)
}

// handleRefinement re-derives any preference the user explicitly updates and
// re-composes, keeping the untouched preferences as they were.
func (e *Engine) handleRefinement(ctx context.Context, sess *Session, text string) Response {
	updated := false
	if tier, ok := ExtractBudget(text); ok {
		sess.Prefs.Budget = tier
		updated = true
	}
	if size, ok := ExtractGroupSize(stripCurrencyAmounts(text)); ok {
		sess.Prefs.GroupSize = size
		updated = true
	}
	if mood := ExtractMood(text); mood != "" && mood != sess.Prefs.Mood {
		if _, known := knownMood(mood); known {
			sess.Prefs.Mood = mood
			updated = true
		}
	}

	if updated {
		logger.Debug("Session %s refined preferences: %+v", sess.ID, sess.Prefs)
	}
	return e.recommend(ctx, sess)
}

// knownMood reports whether the mood is one of the canonical labels. During
// refinement only canonical moods overwrite the stored one, so an arbitrary
// follow-up message ("show me more") doesn't clobber it.
func knownMood(mood string) (string, bool) {
	_, ok := moodKeywords[mood]
	return mood, ok
}

func (e *Engine) recommend(ctx context.Context, sess *Session) Response {
	snapshot := e.store.GetOrRefresh(ctx)
	if snapshot == nil || len(snapshot.Events) == 0 {
		// First-run emptiness is the one user-visible failure state.
		return e.respond(sess,
			"I don't have any events to hand right now. Give me a minute to fetch what's on and ask again.",
			[]string{"Try again"})
	}

	weather := e.fetchWeather(ctx)

	recs := e.composer.Compose(ctx, sess.Prefs, snapshot, weather, time.Now())
	if len(recs) == 0 {
		return e.respond(sess,
			"Nothing in tonight's listings fits that combination. Want to loosen the vibe or budget and try again?",
			[]string{"Change mood", "Change budget"})
	}

	reply := "Here's what I'd go for tonight, best match first. Say a new budget or vibe any time and I'll rework the list."
	resp := e.respond(sess, reply, []string{"Show alternatives", "Change budget"})
	resp.Recommendations = recs
	return resp
}

// fetchWeather returns the current weather or nil; provider failures only
// degrade scoring, never the request.
func (e *Engine) fetchWeather(ctx context.Context) *models.WeatherSnapshot {
	if e.weather == nil {
		return nil
	}
	snapshot, err := e.weather.Current(ctx)
	if err != nil {
		logger.Warn("Weather unavailable, scoring with neutral weather: %v", err)
		return nil
	}
	return snapshot
}

func (e *Engine) respond(sess *Session, reply string, quickReplies []string) Response {
	return Response{
		SessionID:    sess.ID,
		Reply:        reply,
		QuickReplies: quickReplies,
		Stage:        sess.Stage.String(),
	}
}
