package pipeline

import (
	"fmt"
	"unicode/utf8"

	"github.com/rkalmar/mandate/internal/audit"
	"github.com/rkalmar/mandate/internal/policy"
	"github.com/rkalmar/mandate/internal/session"
)

// TruncationNotice is appended to responses cut at the per-turn token cap.
const TruncationNotice = "\n\n[Response truncated: per-turn token limit reached.]"

// charsPerToken is the output-size estimate: ceil(runes / 4) tokens.
const charsPerToken = 4

// limitsStage does session, turn, and daily-budget bookkeeping. All limit
// breaches at turn start are hard aborts; an oversized response is
// truncated rather than aborted, because the content already exists.
type limitsStage struct {
	limits   policy.Limits
	sessions *session.Store
	rec      audit.Recorder
	pname    string
	pver     string
}

func newLimitsStage(p *policy.Policy, sessions *session.Store, rec audit.Recorder) *limitsStage {
	return &limitsStage{
		limits:   p.Limits,
		sessions: sessions,
		rec:      rec,
		pname:    p.Identity.Name,
		pver:     p.Identity.Version,
	}
}

func (s *limitsStage) Name() string { return "limits" }

func (s *limitsStage) OnInput(t *Turn) Result {
	v := s.sessions.BeginTurn(t.SessionID, s.limits)
	if v == session.OK {
		return Continue(t.Messages)
	}

	var reason string
	switch v {
	case session.TooManySessions:
		reason = fmt.Sprintf("Too many active sessions (limit %d). Please try again later.",
			s.limits.MaxConcurrentSessions)
	case session.TurnLimitExceeded:
		reason = fmt.Sprintf("This session has reached its limit of %d turns. Please start a new session.",
			s.limits.MaxTurnsPerSession)
	case session.SessionTimedOut:
		reason = "This session has been open too long and has expired. Please start a new session."
	case session.DailyBudgetExhausted:
		reason = "The daily usage budget has been exhausted. Please try again tomorrow."
	}

	_ = s.rec.Record(audit.Entry{
		PolicyName:    s.pname,
		PolicyVersion: s.pver,
		Status:        audit.StatusBlocked,
		CheckName:     "limits",
		CheckResult:   v.String(),
		CheckDetail:   reason,
	})
	return Abort(reason, false)
}

func (s *limitsStage) OnResult(t *Turn) Result {
	text, idx := t.LastAssistant()
	if idx < 0 {
		return Continue(t.Messages)
	}

	estimate := (utf8.RuneCountInString(text) + charsPerToken - 1) / charsPerToken
	cap := s.limits.MaxTokensPerTurn
	if cap > 0 && estimate > cap {
		t.Messages[idx].Content = truncateRunes(text, cap*charsPerToken) + TruncationNotice
		return Continue(t.Messages)
	}

	s.sessions.AddTokens(estimate)
	return Continue(t.Messages)
}

// truncateRunes cuts text after n runes, never splitting a rune.
func truncateRunes(text string, n int) string {
	for i := range text {
		if n == 0 {
			return text[:i]
		}
		n--
	}
	return text
}
