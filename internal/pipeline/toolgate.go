package pipeline

import (
	"fmt"
	"strings"

	"github.com/rkalmar/mandate/internal/audit"
	"github.com/rkalmar/mandate/internal/model"
	"github.com/rkalmar/mandate/internal/policy"
)

// toolGateStage validates every proposed tool call against the policy's
// whitelist, prohibitions, and forbidden data categories. It gates
// physical side effects, so every decision — allowed or blocked — is
// written to the audit log.
type toolGateStage struct {
	maxCalls       int
	whitelist      map[string]bool
	exactBans      []string
	prefixBans     []string
	dataCategories map[string][]string
	rec            audit.Recorder
	pname          string
	pver           string
}

func newToolGateStage(p *policy.Policy, categoryOverrides map[string][]string, rec audit.Recorder) *toolGateStage {
	whitelist := make(map[string]bool, len(p.Capabilities.Tools))
	for _, tool := range p.Capabilities.Tools {
		whitelist[tool] = true
	}

	var exact, prefixes []string
	for _, banned := range p.Prohibitions.Tools {
		if prefix, ok := strings.CutSuffix(banned, "*"); ok {
			prefixes = append(prefixes, prefix)
		} else {
			exact = append(exact, banned)
		}
	}

	categories := make(map[string][]string, len(p.Prohibitions.DataCategories))
	for _, cat := range p.Prohibitions.DataCategories {
		if kws, ok := categoryOverrides[cat]; ok && len(kws) > 0 {
			categories[cat] = kws
		} else {
			categories[cat] = []string{strings.ReplaceAll(cat, "_", " ")}
		}
	}

	return &toolGateStage{
		maxCalls:       p.Limits.MaxToolCallsPerTurn,
		whitelist:      whitelist,
		exactBans:      exact,
		prefixBans:     prefixes,
		dataCategories: categories,
		rec:            rec,
		pname:          p.Identity.Name,
		pver:           p.Identity.Version,
	}
}

func (s *toolGateStage) Name() string { return "tool_gate" }

func (s *toolGateStage) OnStep(t *Turn, calls []model.ToolCall) Result {
	if s.maxCalls > 0 && len(calls) > s.maxCalls {
		reason := fmt.Sprintf("too many tool calls in one turn: %d proposed, limit %d", len(calls), s.maxCalls)
		s.log(calls, "call_count", "blocked", reason)
		return Abort(reason, true)
	}

	for _, call := range calls {
		if !s.whitelist[call.Name] {
			reason := fmt.Sprintf("tool %q is not in the policy whitelist", call.Name)
			s.log(calls, "whitelist", "blocked", reason)
			return Abort(reason, true)
		}

		if banned, by := s.prohibited(call.Name); banned {
			reason := fmt.Sprintf("tool %q matches prohibition %q", call.Name, by)
			s.log(calls, "prohibition", "blocked", reason)
			return Abort(reason, true)
		}

		args := strings.ToLower(call.ArgsJSON())
		for cat, kws := range s.dataCategories {
			if containsAny(args, kws) {
				reason := fmt.Sprintf("tool call %q touches prohibited data category %q",
					call.Name, strings.ReplaceAll(cat, "_", " "))
				s.log(calls, "data_category", "blocked", reason)
				return Abort(reason, true)
			}
		}

		s.log([]model.ToolCall{call}, "tool_gate", "allowed",
			fmt.Sprintf("tool %q permitted", call.Name))
	}

	return Continue(t.Messages)
}

func (s *toolGateStage) prohibited(tool string) (bool, string) {
	for _, b := range s.exactBans {
		if b == tool {
			return true, b
		}
	}
	for _, prefix := range s.prefixBans {
		if strings.HasPrefix(tool, prefix) {
			return true, prefix + "*"
		}
	}
	return false, ""
}

func (s *toolGateStage) log(calls []model.ToolCall, check, result, detail string) {
	status := audit.StatusSuccess
	if result == "blocked" {
		status = audit.StatusBlocked
	}
	_ = s.rec.Record(audit.Entry{
		PolicyName:    s.pname,
		PolicyVersion: s.pver,
		Status:        status,
		CheckName:     check,
		CheckResult:   result,
		CheckDetail:   detail,
		ToolCalls:     model.MarshalCalls(calls),
	})
}
