package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rkalmar/mandate/internal/policy"
)

// substantiveLength is the response size above which citation evidence
// is required. Short answers carry no checkable claims.
const substantiveLength = 200

// citationEvidence is the fixed family of patterns accepted as citation
// evidence: statute references, section notation, bracketed neutral case
// citations, "v." case names, legislation-registry URLs, and bare URLs.
var citationEvidence = []*regexp.Regexp{
	regexp.MustCompile(`\b[A-Z][A-Za-z]*(?:\s+[A-Z][A-Za-z]*)*\s+Act\s+\d{4}\b`),
	regexp.MustCompile(`(?i)\bs\.\s*\d+`),
	regexp.MustCompile(`(?i)\bsection\s+\d+`),
	regexp.MustCompile(`§\s*\d+`),
	regexp.MustCompile(`\[\d{4}\]\s+[A-Z]{2,}`),
	regexp.MustCompile(`\b[A-Z][A-Za-z]+\s+v\.?\s+[A-Z][A-Za-z]+`),
	regexp.MustCompile(`legislation\.gov\.uk`),
	regexp.MustCompile(`https?://\S+`),
}

// knownBlockedSources maps common blocked-source labels to detection
// patterns. Labels outside this set fall back to a generic word match.
var knownBlockedSources = map[string]string{
	"forums":       `(?i)\b(forum|reddit|mumsnet|quora)\b`,
	"social_media": `(?i)\b(twitter|facebook|instagram|tiktok)\b`,
	"wikipedia":    `(?i)\bwikipedia\b`,
	"blogs":        `(?i)\bblog(s|ger)?\b`,
}

type blockedSource struct {
	label   string
	pattern *regexp.Regexp
}

// citationStage enforces minimum citation evidence and blocked-source
// absence on the final response. A no-op when the policy does not
// require citations.
type citationStage struct {
	required bool
	min      int
	blocked  []blockedSource
}

func newCitationStage(p *policy.Policy) *citationStage {
	c := p.Requirements.Citations
	if c == nil || !c.Required {
		return &citationStage{}
	}

	s := &citationStage{required: true, min: c.MinPerClaim}
	for _, label := range c.BlockedSources {
		pattern, ok := knownBlockedSources[label]
		if !ok {
			pattern = `(?i)\b` + regexp.QuoteMeta(strings.ReplaceAll(label, "_", " ")) + `\b`
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		s.blocked = append(s.blocked, blockedSource{label: label, pattern: re})
	}
	return s
}

func (s *citationStage) Name() string { return "citation" }

func (s *citationStage) OnResult(t *Turn) Result {
	if !s.required {
		return Continue(t.Messages)
	}
	text, idx := t.LastAssistant()
	if idx < 0 {
		return Continue(t.Messages)
	}

	// Blocked sources: retryable at first, terminal once the retry
	// budget is spent (the driver hardens the abort).
	for _, b := range s.blocked {
		if b.pattern.MatchString(text) {
			return Abort(fmt.Sprintf(
				"The response cites a blocked source (%s); cite a reputable source instead.",
				strings.ReplaceAll(b.label, "_", " ")), true)
		}
	}

	// Missing evidence: retry while budget remains, then let the
	// response through unmodified so the disclaimer stage still runs.
	if s.min > 0 && len(text) > substantiveLength && countEvidence(text) < s.min {
		if t.RetryCount >= MaxRetries {
			return Continue(t.Messages)
		}
		return Abort("The response makes substantive claims but lacks citations; add statute, case, or source references.", true)
	}

	return Continue(t.Messages)
}

// countEvidence totals citation-evidence matches across the fixed
// pattern family.
func countEvidence(text string) int {
	n := 0
	for _, re := range citationEvidence {
		n += len(re.FindAllString(text, -1))
	}
	return n
}
