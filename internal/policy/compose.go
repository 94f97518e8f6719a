package policy

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoPolicies is returned when Compose is given an empty input.
var ErrNoPolicies = errors.New("compose: no policies given")

// Compose merges multiple policies into one effective policy for
// orchestrator scenarios. Composition is restriction-only: capabilities
// intersect, prohibitions union, and every numeric limit takes the
// most restrictive configured value.
//
// A single input is returned unchanged (same instance).
func Compose(policies []*Policy) (*Policy, error) {
	if len(policies) == 0 {
		return nil, ErrNoPolicies
	}
	if len(policies) == 1 {
		return policies[0], nil
	}

	out := &Policy{}

	names := make([]string, len(policies))
	for i, p := range policies {
		names[i] = p.Identity.Name
	}
	out.Identity = Identity{
		Name:        "composed:" + strings.Join(names, "+"),
		Version:     policies[0].Identity.Version,
		Description: fmt.Sprintf("composition of %d policies: %s", len(policies), strings.Join(names, ", ")),
	}

	out.Capabilities.Tools = policies[0].Capabilities.Tools
	out.Capabilities.OutputTypes = policies[0].Capabilities.OutputTypes
	out.Capabilities.DataAccess = policies[0].Capabilities.DataAccess
	out.Scope.Allowed = policies[0].Scope.Allowed
	out.Limits = policies[0].Limits

	for _, p := range policies {
		out.Identity.Tags = unionStrings(out.Identity.Tags, p.Identity.Tags)
		out.Identity.RequiredModules = unionStrings(out.Identity.RequiredModules, p.Identity.RequiredModules)
	}

	for _, p := range policies[1:] {
		out.Capabilities.Tools = intersectStrings(out.Capabilities.Tools, p.Capabilities.Tools)
		out.Capabilities.OutputTypes = intersectStrings(out.Capabilities.OutputTypes, p.Capabilities.OutputTypes)
		out.Capabilities.DataAccess = intersectDataAccess(out.Capabilities.DataAccess, p.Capabilities.DataAccess)
		out.Scope.Allowed = intersectStrings(out.Scope.Allowed, p.Scope.Allowed)
		out.Limits = minLimits(out.Limits, p.Limits)
	}

	for _, p := range policies {
		out.Prohibitions.Tools = unionStrings(out.Prohibitions.Tools, p.Prohibitions.Tools)
		out.Prohibitions.Actions = unionStrings(out.Prohibitions.Actions, p.Prohibitions.Actions)
		out.Prohibitions.DataCategories = unionStrings(out.Prohibitions.DataCategories, p.Prohibitions.DataCategories)
		out.Escalation = append(out.Escalation, p.Escalation...)
		out.Requirements.Disclaimers = unionDisclaimers(out.Requirements.Disclaimers, p.Requirements.Disclaimers)
	}

	out.Scope.OnUnsupported = mostRestrictiveBehavior(policies)
	for _, p := range policies {
		if out.Scope.Message == "" {
			out.Scope.Message = p.Scope.Message
		}
	}

	out.Requirements.Citations = composeCitations(policies)
	out.Requirements.HumanReview = composeHumanReview(policies)

	// Composed audits at maximum verbosity and the longest retention.
	out.Requirements.Audit.Verbosity = VerbosityFull
	for _, p := range policies {
		if p.Requirements.Audit.RetentionDays > out.Requirements.Audit.RetentionDays {
			out.Requirements.Audit.RetentionDays = p.Requirements.Audit.RetentionDays
		}
	}

	return out, nil
}

// minLimits takes the most restrictive configured value per field.
// Zero means unset and defers to the other side.
func minLimits(a, b Limits) Limits {
	return Limits{
		MaxTokensPerTurn:      minConfigured(a.MaxTokensPerTurn, b.MaxTokensPerTurn),
		MaxToolCallsPerTurn:   minConfigured(a.MaxToolCallsPerTurn, b.MaxToolCallsPerTurn),
		MaxTurnsPerSession:    minConfigured(a.MaxTurnsPerSession, b.MaxTurnsPerSession),
		MaxConcurrentSessions: minConfigured(a.MaxConcurrentSessions, b.MaxConcurrentSessions),
		DailyTokenBudget:      minConfigured(a.DailyTokenBudget, b.DailyTokenBudget),
		TurnTimeoutSeconds:    minConfigured(a.TurnTimeoutSeconds, b.TurnTimeoutSeconds),
	}
}

func minConfigured(a, b int) int {
	if a == 0 {
		return b
	}
	if b == 0 {
		return a
	}
	if a < b {
		return a
	}
	return b
}

// mostRestrictiveBehavior picks refuse over escalate over warn_and_attempt.
func mostRestrictiveBehavior(policies []*Policy) UnsupportedScopeBehavior {
	rank := map[UnsupportedScopeBehavior]int{
		ScopeWarnAndAttempt: 1,
		ScopeEscalate:       2,
		ScopeRefuse:         3,
	}
	var best UnsupportedScopeBehavior
	for _, p := range policies {
		if rank[p.Scope.OnUnsupported] > rank[best] {
			best = p.Scope.OnUnsupported
		}
	}
	return best
}

func composeCitations(policies []*Policy) *CitationPolicy {
	var out *CitationPolicy
	for _, p := range policies {
		c := p.Requirements.Citations
		if c == nil {
			continue
		}
		if out == nil {
			cp := *c
			out = &cp
			continue
		}
		out.Required = out.Required || c.Required
		if c.MinPerClaim > out.MinPerClaim {
			out.MinPerClaim = c.MinPerClaim
		}
		if out.Format == "" {
			out.Format = c.Format
		}
		out.AllowedSources = intersectStrings(out.AllowedSources, c.AllowedSources)
		out.BlockedSources = unionStrings(out.BlockedSources, c.BlockedSources)
	}
	return out
}

func composeHumanReview(policies []*Policy) *HumanReviewPolicy {
	var out *HumanReviewPolicy
	for _, p := range policies {
		hr := p.Requirements.HumanReview
		if hr == nil {
			continue
		}
		if out == nil {
			cp := *hr
			out = &cp
			continue
		}
		out.TriggerActions = unionStrings(out.TriggerActions, hr.TriggerActions)
		if out.Prompt == "" {
			out.Prompt = hr.Prompt
		}
	}
	return out
}

// unionDisclaimers deduplicates by exact disclaimer text.
func unionDisclaimers(a, b []DisclaimerRule) []DisclaimerRule {
	seen := make(map[string]bool, len(a))
	out := append([]DisclaimerRule(nil), a...)
	for _, d := range a {
		seen[d.Text] = true
	}
	for _, d := range b {
		if !seen[d.Text] {
			seen[d.Text] = true
			out = append(out, d)
		}
	}
	return out
}

// intersectDataAccess keeps scopes present on both sides, with
// permissions and file types intersected per scope.
func intersectDataAccess(a, b []DataAccessRule) []DataAccessRule {
	byScope := make(map[string]DataAccessRule, len(b))
	for _, rule := range b {
		byScope[rule.Scope] = rule
	}
	var out []DataAccessRule
	for _, rule := range a {
		other, ok := byScope[rule.Scope]
		if !ok {
			continue
		}
		out = append(out, DataAccessRule{
			Scope:       rule.Scope,
			Permissions: intersectStrings(rule.Permissions, other.Permissions),
			FileTypes:   intersectStrings(rule.FileTypes, other.FileTypes),
		})
	}
	return out
}

func intersectStrings(a, b []string) []string {
	set := make(map[string]bool, len(b))
	for _, s := range b {
		set[s] = true
	}
	var out []string
	for _, s := range a {
		if set[s] {
			out = append(out, s)
		}
	}
	return out
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := append([]string(nil), a...)
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
