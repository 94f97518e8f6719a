// Package policydiff compares two policy documents and classifies each
// change as stricter or looser, so a reviewer can see at a glance
// whether a policy update tightens or relaxes enforcement.
package policydiff

import (
	"fmt"
	"strings"

	"github.com/rkalmar/mandate/internal/policy"
)

// Change represents a scalar field change.
type Change struct {
	Field   string `json:"field"`
	Old     string `json:"old"`
	New     string `json:"new"`
	Comment string `json:"comment,omitempty"`
}

// ListChange represents an entry added to or removed from a list section.
type ListChange struct {
	Type    string `json:"type"` // "added", "removed"
	Section string `json:"section"`
	Entry   string `json:"entry"`
	Comment string `json:"comment,omitempty"`
}

// DiffResult holds the comparison of two policy documents.
type DiffResult struct {
	OldPath     string       `json:"old_path"`
	NewPath     string       `json:"new_path"`
	Changes     []Change     `json:"changes"`
	ListChanges []ListChange `json:"list_changes"`
	HasChanges  bool         `json:"has_changes"`
}

// Diff compares two policies and returns the differences.
func Diff(old, new *policy.Policy) *DiffResult {
	r := &DiffResult{}

	if old.Identity.Version != new.Identity.Version {
		r.Changes = append(r.Changes, Change{
			Field: "identity.version",
			Old:   old.Identity.Version,
			New:   new.Identity.Version,
		})
	}

	// Granting a capability loosens the policy; revoking one tightens it.
	diffList(r, "capabilities.tools", old.Capabilities.Tools, new.Capabilities.Tools, false)
	diffList(r, "capabilities.output_types", old.Capabilities.OutputTypes, new.Capabilities.OutputTypes, false)

	// Adding a prohibition tightens it.
	diffList(r, "prohibitions.tools", old.Prohibitions.Tools, new.Prohibitions.Tools, true)
	diffList(r, "prohibitions.actions", old.Prohibitions.Actions, new.Prohibitions.Actions, true)
	diffList(r, "prohibitions.data_categories", old.Prohibitions.DataCategories, new.Prohibitions.DataCategories, true)

	diffList(r, "scope.allowed", old.Scope.Allowed, new.Scope.Allowed, false)
	if old.Scope.OnUnsupported != new.Scope.OnUnsupported {
		r.Changes = append(r.Changes, Change{
			Field: "scope.on_unsupported",
			Old:   string(old.Scope.OnUnsupported),
			New:   string(new.Scope.OnUnsupported),
		})
	}

	diffLimit(r, "limits.max_tokens_per_turn", old.Limits.MaxTokensPerTurn, new.Limits.MaxTokensPerTurn)
	diffLimit(r, "limits.max_tool_calls_per_turn", old.Limits.MaxToolCallsPerTurn, new.Limits.MaxToolCallsPerTurn)
	diffLimit(r, "limits.max_turns_per_session", old.Limits.MaxTurnsPerSession, new.Limits.MaxTurnsPerSession)
	diffLimit(r, "limits.max_concurrent_sessions", old.Limits.MaxConcurrentSessions, new.Limits.MaxConcurrentSessions)
	diffLimit(r, "limits.daily_token_budget", old.Limits.DailyTokenBudget, new.Limits.DailyTokenBudget)
	diffLimit(r, "limits.turn_timeout_seconds", old.Limits.TurnTimeoutSeconds, new.Limits.TurnTimeoutSeconds)

	diffCitations(r, old.Requirements.Citations, new.Requirements.Citations)
	diffList(r, "escalation", escalationLabels(old), escalationLabels(new), true)

	r.HasChanges = len(r.Changes) > 0 || len(r.ListChanges) > 0
	return r
}

// diffLimit treats zero as unset: introducing a cap is stricter,
// removing one is looser, and between two set caps lower is stricter.
func diffLimit(r *DiffResult, field string, old, new int) {
	if old == new {
		return
	}
	var comment string
	switch {
	case old == 0:
		comment = "stricter"
	case new == 0:
		comment = "looser"
	case new < old:
		comment = "stricter"
	default:
		comment = "looser"
	}
	r.Changes = append(r.Changes, Change{
		Field:   field,
		Old:     formatLimit(old),
		New:     formatLimit(new),
		Comment: comment,
	})
}

func formatLimit(v int) string {
	if v == 0 {
		return "unset"
	}
	return fmt.Sprintf("%d", v)
}

// diffList reports entries added to or removed from a list section.
// When addIsStricter is true the section is restrictive (prohibitions,
// escalation), so additions tighten the policy.
func diffList(r *DiffResult, section string, old, new []string, addIsStricter bool) {
	oldSet := make(map[string]bool, len(old))
	for _, e := range old {
		oldSet[e] = true
	}
	newSet := make(map[string]bool, len(new))
	for _, e := range new {
		newSet[e] = true
	}

	for _, e := range new {
		if !oldSet[e] {
			r.ListChanges = append(r.ListChanges, ListChange{
				Type: "added", Section: section, Entry: e,
				Comment: strictness(addIsStricter),
			})
		}
	}
	for _, e := range old {
		if !newSet[e] {
			r.ListChanges = append(r.ListChanges, ListChange{
				Type: "removed", Section: section, Entry: e,
				Comment: strictness(!addIsStricter),
			})
		}
	}
}

func strictness(stricter bool) string {
	if stricter {
		return "stricter"
	}
	return "looser"
}

func diffCitations(r *DiffResult, old, new *policy.CitationPolicy) {
	oldReq, newReq := old != nil && old.Required, new != nil && new.Required
	if oldReq != newReq {
		r.Changes = append(r.Changes, Change{
			Field:   "requirements.citations.required",
			Old:     fmt.Sprintf("%t", oldReq),
			New:     fmt.Sprintf("%t", newReq),
			Comment: strictness(newReq),
		})
	}

	oldMin, newMin := 0, 0
	if old != nil {
		oldMin = old.MinPerClaim
	}
	if new != nil {
		newMin = new.MinPerClaim
	}
	if oldMin != newMin {
		r.Changes = append(r.Changes, Change{
			Field:   "requirements.citations.min_per_claim",
			Old:     fmt.Sprintf("%d", oldMin),
			New:     fmt.Sprintf("%d", newMin),
			Comment: strictness(newMin > oldMin),
		})
	}
}

func escalationLabels(p *policy.Policy) []string {
	labels := make([]string, 0, len(p.Escalation))
	for _, t := range p.Escalation {
		label := t.Condition
		if len(t.Topics) > 0 {
			label += ":" + strings.Join(t.Topics, ",")
		}
		label += "→" + string(t.Action)
		labels = append(labels, label)
	}
	return labels
}
