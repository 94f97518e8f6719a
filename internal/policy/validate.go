package policy

import (
	"fmt"
	"strings"
)

// ValidationResult is the outcome of a consistency check. Errors mean the
// document is contradictory or would crash a stage; warnings flag risky
// but legal configurations.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Validate checks cross-field logical consistency of a structurally valid
// policy. It is pure: the document is never mutated.
func Validate(p *Policy) ValidationResult {
	var errs, warns []string

	// A tool must never be both whitelisted and prohibited.
	for _, tool := range p.Capabilities.Tools {
		for _, banned := range p.Prohibitions.Tools {
			if prohibits(banned, tool) {
				errs = append(errs, fmt.Sprintf(
					"tool %q is whitelisted in capabilities but matches prohibition %q", tool, banned))
			}
		}
	}

	for i, t := range p.Escalation {
		if t.Condition == CondTopicMatch && len(t.Topics) == 0 {
			errs = append(errs, fmt.Sprintf(
				"escalation[%d]: condition %s requires a non-empty topic list", i, CondTopicMatch))
		}
		if t.Condition == CondConfidenceBelow && t.Threshold == nil {
			errs = append(errs, fmt.Sprintf(
				"escalation[%d]: condition %s requires a numeric threshold", i, CondConfidenceBelow))
		}
	}

	for i, d := range p.Requirements.Disclaimers {
		if d.Trigger == TriggerCustom && d.Pattern == "" {
			errs = append(errs, fmt.Sprintf(
				"requirements.disclaimers[%d]: custom trigger requires a pattern", i))
		}
	}

	if len(p.Capabilities.Tools) > 0 && len(p.Identity.RequiredModules) == 0 {
		warns = append(warns, "capabilities declare tools but identity.required_modules is empty; no extension module will provide them")
	}
	if p.Limits.MaxTokensPerTurn > 0 && p.Limits.DailyTokenBudget > 0 &&
		p.Limits.MaxTokensPerTurn > p.Limits.DailyTokenBudget {
		warns = append(warns, fmt.Sprintf(
			"limits.max_tokens_per_turn (%d) exceeds limits.daily_token_budget (%d); a single turn can exhaust the day",
			p.Limits.MaxTokensPerTurn, p.Limits.DailyTokenBudget))
	}
	if len(p.Scope.Allowed) == 0 {
		warns = append(warns, "scope.allowed is empty; every scope-matched request will be treated as unsupported")
	}
	if c := p.Requirements.Citations; c != nil && c.Required && c.MinPerClaim == 0 {
		warns = append(warns, "citations are required but min_per_claim is 0; the citation stage will accept uncited claims")
	}

	return ValidationResult{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Warnings: warns,
	}
}

// prohibits reports whether a prohibition entry matches a tool identifier.
// An entry ending in "*" prohibits the literal prefix before the marker.
func prohibits(entry, tool string) bool {
	if prefix, ok := strings.CutSuffix(entry, "*"); ok {
		return strings.HasPrefix(tool, prefix)
	}
	return entry == tool
}
