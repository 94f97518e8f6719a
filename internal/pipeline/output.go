package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rkalmar/mandate/internal/policy"
	"github.com/rkalmar/mandate/internal/registry"
)

type actionCheck struct {
	label   string
	pattern *regexp.Regexp
}

// outputStage detects prohibited action language in the final response
// using patterns contributed by extension modules. Prohibited actions
// with no registered detector cannot be detected and are skipped.
type outputStage struct {
	checks []actionCheck
}

func newOutputStage(p *policy.Policy, reg *registry.Registry) (*outputStage, error) {
	patterns := reg.ActionPatterns(p.Identity.RequiredModules)

	var checks []actionCheck
	for _, action := range p.Prohibitions.Actions {
		pattern, ok := patterns[action]
		if !ok {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("action %q: bad detection pattern: %w", action, err)
		}
		checks = append(checks, actionCheck{label: action, pattern: re})
	}
	return &outputStage{checks: checks}, nil
}

func (s *outputStage) Name() string { return "output_validator" }

func (s *outputStage) OnResult(t *Turn) Result {
	text, idx := t.LastAssistant()
	if idx < 0 {
		return Continue(t.Messages)
	}

	for _, check := range s.checks {
		if check.pattern.MatchString(text) {
			return Abort(fmt.Sprintf(
				"I can't help with %s.", strings.ReplaceAll(check.label, "_", " ")), false)
		}
	}
	return Continue(t.Messages)
}
