package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rkalmar/mandate/internal/policy"
)

// documentLength is the response size above which on_document_generation
// disclaimers fire even without letter-like headings.
const documentLength = 500

// letterHeadingRe matches formal-correspondence openings and sign-offs.
var letterHeadingRe = regexp.MustCompile(`(?im)^(dear\s+\S|to whom it may concern|re:|subject:)|(?i)yours\s+(sincerely|faithfully)`)

// statutoryClaimRe matches statutory-reference language that marks a
// legal claim.
var statutoryClaimRe = regexp.MustCompile(`(?i)\b(under\s+(the\s+)?[A-Za-z ]+act\b|s\.\s*\d+|section\s+\d+|§\s*\d+|statutory|regulation\s+\d+)`)

// reviewTriggerPatterns detect the actions that require a human-review
// prompt. Unknown trigger labels fall back to a generic word match.
var reviewTriggerPatterns = map[string]*regexp.Regexp{
	"document_finalization":   regexp.MustCompile(`(?i)\b(final\s+(version|draft|document)|finali[sz]ed?\b)`),
	"correspondence_dispatch": regexp.MustCompile(`(?i)\b(send|post|dispatch)\s+(this|the)\s+(letter|email|notice)\b`),
	"deadline":                regexp.MustCompile(`(?i)\b(deadline|due\s+date|within\s+\d+\s+(days|weeks)|no\s+later\s+than)\b`),
}

type compiledDisclaimer struct {
	rule   policy.DisclaimerRule
	custom *regexp.Regexp
}

type reviewCheck struct {
	patterns []*regexp.Regexp
	prompt   string
}

// disclaimerStage injects required disclaimer and human-review text.
// It transforms responses and never aborts.
type disclaimerStage struct {
	rules  []compiledDisclaimer
	review *reviewCheck
}

func newDisclaimerStage(p *policy.Policy) (*disclaimerStage, error) {
	s := &disclaimerStage{}
	for _, rule := range p.Requirements.Disclaimers {
		cd := compiledDisclaimer{rule: rule}
		if rule.Trigger == policy.TriggerCustom {
			re, err := regexp.Compile(rule.Pattern)
			if err != nil {
				return nil, fmt.Errorf("custom disclaimer pattern %q: %w", rule.Pattern, err)
			}
			cd.custom = re
		}
		s.rules = append(s.rules, cd)
	}

	if hr := p.Requirements.HumanReview; hr != nil && hr.Prompt != "" {
		rc := &reviewCheck{prompt: hr.Prompt}
		for _, action := range hr.TriggerActions {
			if re, ok := reviewTriggerPatterns[action]; ok {
				rc.patterns = append(rc.patterns, re)
				continue
			}
			generic, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(strings.ReplaceAll(action, "_", " ")) + `\b`)
			if err != nil {
				return nil, fmt.Errorf("review trigger %q: %w", action, err)
			}
			rc.patterns = append(rc.patterns, generic)
		}
		s.review = rc
	}

	return s, nil
}

func (s *disclaimerStage) Name() string { return "disclaimer" }

func (s *disclaimerStage) OnResult(t *Turn) Result {
	text, idx := t.LastAssistant()
	if idx < 0 {
		return Continue(t.Messages)
	}

	for _, cd := range s.rules {
		if !cd.matches(text) {
			continue
		}
		// Re-insertion is skipped when the exact text is already present.
		if strings.Contains(text, cd.rule.Text) {
			continue
		}
		switch cd.rule.Placement {
		case policy.PlaceStart:
			text = cd.rule.Text + "\n\n" + text
		case policy.PlaceBoth:
			text = cd.rule.Text + "\n\n" + text + "\n\n" + cd.rule.Text
		default:
			text = text + "\n\n" + cd.rule.Text
		}
	}

	if s.review != nil && !strings.Contains(text, s.review.prompt) {
		for _, re := range s.review.patterns {
			if re.MatchString(text) {
				text = text + "\n\n" + s.review.prompt
				break
			}
		}
	}

	t.Messages[idx].Content = text
	return Continue(t.Messages)
}

func (cd compiledDisclaimer) matches(text string) bool {
	switch cd.rule.Trigger {
	case policy.TriggerAlways:
		return true
	case policy.TriggerDocument:
		return letterHeadingRe.MatchString(text) || len(text) > documentLength
	case policy.TriggerClaim, policy.TriggerLegalClaim:
		return statutoryClaimRe.MatchString(text)
	case policy.TriggerCustom:
		return cd.custom != nil && cd.custom.MatchString(text)
	default:
		return false
	}
}
