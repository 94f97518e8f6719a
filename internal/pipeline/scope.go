package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rkalmar/mandate/internal/policy"
	"github.com/rkalmar/mandate/internal/registry"
)

type scopeCheck struct {
	id       string
	keywords []string
}

// scopeStage detects jurisdiction/domain keywords in the latest user
// message and applies the policy's unsupported-scope behavior. Checks are
// ordered by scope id so a message matching several disallowed scopes
// always yields the same refusal.
type scopeStage struct {
	allowed  map[string]bool
	checks   []scopeCheck
	behavior policy.UnsupportedScopeBehavior
	message  string
}

func newScopeStage(p *policy.Policy, reg *registry.Registry) *scopeStage {
	allowed := make(map[string]bool, len(p.Scope.Allowed))
	for _, id := range p.Scope.Allowed {
		allowed[id] = true
	}

	keywords := reg.ScopeKeywords(p.Identity.RequiredModules)
	checks := make([]scopeCheck, 0, len(keywords))
	for id, kws := range keywords {
		checks = append(checks, scopeCheck{id: id, keywords: kws})
	}
	sort.Slice(checks, func(i, j int) bool { return checks[i].id < checks[j].id })

	return &scopeStage{
		allowed:  allowed,
		checks:   checks,
		behavior: p.Scope.OnUnsupported,
		message:  p.Scope.Message,
	}
}

func (s *scopeStage) Name() string { return "scope" }

func (s *scopeStage) OnInput(t *Turn) Result {
	msg := strings.ToLower(t.LastUser())
	if msg == "" {
		return Continue(t.Messages)
	}

	for _, check := range s.checks {
		if s.allowed[check.id] {
			continue
		}
		if !containsAny(msg, check.keywords) {
			continue
		}
		switch s.behavior {
		case policy.ScopeRefuse, policy.ScopeEscalate:
			return Abort(s.refusalMessage(check.id), false)
		case policy.ScopeWarnAndAttempt:
			// The system prompt carries the warning for this mode; the
			// message passes through unchanged.
			return Continue(t.Messages)
		default:
			return Abort(s.refusalMessage(check.id), false)
		}
	}
	return Continue(t.Messages)
}

func (s *scopeStage) refusalMessage(scopeID string) string {
	if s.message != "" {
		return s.message
	}
	return fmt.Sprintf("This request appears to involve %s, which is outside this assistant's supported scope.",
		strings.ReplaceAll(scopeID, "_", " "))
}
