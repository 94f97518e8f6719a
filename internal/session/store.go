// Package session tracks per-session turn counters and the process-wide
// daily token budget for the limits stage.
package session

import (
	"sync"
	"time"

	"github.com/rkalmar/mandate/internal/policy"
)

// Clock abstracts wall-clock time so daily rollover and timeout logic
// are deterministically testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// Violation is a limit breach detected at turn start.
type Violation int

const (
	OK Violation = iota
	TooManySessions
	TurnLimitExceeded
	SessionTimedOut
	DailyBudgetExhausted
)

// String returns a short label for audit details.
func (v Violation) String() string {
	switch v {
	case OK:
		return "ok"
	case TooManySessions:
		return "too_many_sessions"
	case TurnLimitExceeded:
		return "turn_limit_exceeded"
	case SessionTimedOut:
		return "session_timed_out"
	case DailyBudgetExhausted:
		return "daily_budget_exhausted"
	default:
		return "unknown"
	}
}

type sessionState struct {
	turns     int
	startedAt time.Time
}

// Store holds session counters and the daily token counter. It is shared
// across concurrently active sessions, so every access goes through the
// mutex. Sessions are created on first turn and evicted when closed by
// their own limit violation; there is no separate expiry sweep.
type Store struct {
	mu       sync.Mutex
	clock    Clock
	sessions map[string]*sessionState
	tokens   int
	day      time.Time
}

// NewStore creates a Store. A nil clock falls back to the system clock.
func NewStore(clock Clock) *Store {
	if clock == nil {
		clock = SystemClock()
	}
	s := &Store{
		clock:    clock,
		sessions: make(map[string]*sessionState),
	}
	s.day = dayOf(clock.Now())
	return s
}

// BeginTurn applies the input-side limit checks in order: concurrency
// cap, per-session turn cap, session timeout, daily token budget.
// Sessions that breach their own turn cap or timeout are evicted.
func (s *Store) BeginTurn(sessionID string, lim policy.Limits) Violation {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	s.rollover(now)

	st, exists := s.sessions[sessionID]
	if !exists {
		if lim.MaxConcurrentSessions > 0 && len(s.sessions) >= lim.MaxConcurrentSessions {
			return TooManySessions
		}
		st = &sessionState{startedAt: now}
		s.sessions[sessionID] = st
	}

	st.turns++
	if lim.MaxTurnsPerSession > 0 && st.turns > lim.MaxTurnsPerSession {
		delete(s.sessions, sessionID)
		return TurnLimitExceeded
	}

	if lim.TurnTimeoutSeconds > 0 {
		timeout := time.Duration(lim.TurnTimeoutSeconds) * time.Second
		if now.Sub(st.startedAt) > timeout {
			delete(s.sessions, sessionID)
			return SessionTimedOut
		}
	}

	if lim.DailyTokenBudget > 0 && s.tokens >= lim.DailyTokenBudget {
		return DailyBudgetExhausted
	}

	return OK
}

// AddTokens accumulates an output-size estimate into the daily counter.
func (s *Store) AddTokens(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollover(s.clock.Now())
	s.tokens += n
}

// DailyTokens returns the tokens consumed in the current day.
func (s *Store) DailyTokens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollover(s.clock.Now())
	return s.tokens
}

// ActiveSessions returns the number of tracked sessions.
func (s *Store) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close evicts a session explicitly (host runtime closed the conversation).
func (s *Store) Close(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// rollover resets the daily token counter at the local-calendar-day
// boundary, detected lazily on each call. Caller must hold the mutex.
func (s *Store) rollover(now time.Time) {
	if d := dayOf(now); !d.Equal(s.day) {
		s.day = d
		s.tokens = 0
	}
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
