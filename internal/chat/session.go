// Package chat implements the conversational recommendation flow: a
// per-session finite-state machine that elicits mood, group size, and budget
// turn by turn, then composes recommendations from the event catalog.
package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nightowl-app/nightowl/internal/models"
)

// Stage identifies where a conversation is in the elicitation flow.
type Stage int

const (
	// StageGreeting is the initial stage: the session has not yet answered
	// the welcome prompt.
	StageGreeting Stage = iota
	// StageMood awaits a free-text mood or vibe descriptor.
	StageMood
	// StageGroupSize awaits a party size.
	StageGroupSize
	// StageBudget awaits a budget figure or tier.
	StageBudget
	// StageComplete means all preferences are collected; further messages
	// refine them and re-compose recommendations.
	StageComplete
)

// String returns the wire name of the stage.
func (s Stage) String() string {
	switch s {
	case StageGreeting:
		return "greeting"
	case StageMood:
		return "mood"
	case StageGroupSize:
		return "group_size"
	case StageBudget:
		return "budget"
	case StageComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Session tracks one user's conversation. Each session is only ever advanced
// by its own sequential message stream; the per-session mutex serialises
// concurrent deliveries for the same session without blocking other sessions.
// All mutable fields, LastActive included, are guarded by that mutex.
type Session struct {
	ID         string
	Stage      Stage
	Prefs      models.Preferences
	Greeted    bool // welcome already sent
	LastActive time.Time

	mu sync.Mutex
}

// idleSince reports how long the session has been idle at the given time.
func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.LastActive)
}

// SessionStore holds sessions keyed by identifier. Sessions are in-memory
// only and expire by TTL; there is no cross-restart durability.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

// NewSessionStore creates a store with the given session TTL.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

// GetOrCreate returns the session for id, creating a fresh one (with a new
// opaque identifier) when id is empty or unknown. The caller is expected to
// refresh LastActive under the session mutex once it handles the message.
func (s *SessionStore) GetOrCreate(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if sess, ok := s.sessions[id]; ok {
			return sess
		}
	}

	sess := &Session{
		ID:         uuid.New().String(),
		Stage:      StageGreeting,
		LastActive: time.Now(),
	}
	s.sessions[sess.ID] = sess
	return sess
}

// Get returns the session for id, or nil.
func (s *SessionStore) Get(id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// Count returns the number of live sessions.
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// PruneExpired drops sessions idle longer than the TTL and returns how many
// were removed. Intended to run on a periodic sweep. Idle time is read under
// each session's own mutex, so a sweep concurrent with message handling never
// observes a half-written timestamp. Lock order is always store then session.
func (s *SessionStore) PruneExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.idleSince(now) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
