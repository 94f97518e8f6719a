package pipeline

import (
	"strings"

	"github.com/rkalmar/mandate/internal/policy"
	"github.com/rkalmar/mandate/internal/registry"
)

// distressKeywords is the fixed universal distress vocabulary. It is not
// policy-specific: every policy with a distress trigger uses the same list.
var distressKeywords = []string{
	"want to die",
	"kill myself",
	"suicide",
	"suicidal",
	"self harm",
	"self-harm",
	"hurt myself",
	"end my life",
	"end it all",
	"can't go on",
	"no way out",
	"better off without me",
}

// escalationStage detects escalation topics and distress language in the
// latest user message. Prior turns are never re-scanned.
type escalationStage struct {
	triggers      []policy.EscalationTrigger
	topicKeywords map[string][]string
}

func newEscalationStage(p *policy.Policy, reg *registry.Registry) *escalationStage {
	return &escalationStage{
		triggers:      p.Escalation,
		topicKeywords: reg.EscalationTopics(p.Identity.RequiredModules),
	}
}

func (s *escalationStage) Name() string { return "escalation" }

func (s *escalationStage) OnInput(t *Turn) Result {
	msg := strings.ToLower(t.LastUser())
	if msg == "" {
		return Continue(t.Messages)
	}

	for _, trig := range s.triggers {
		if trig.Condition != policy.CondTopicMatch || !trig.Action.ImpliesRefusal() {
			continue
		}
		for _, topic := range trig.Topics {
			if containsAny(msg, s.keywordsFor(topic)) {
				return Abort(withResources(trig.Message, trig.Resources), false)
			}
		}
	}

	if containsAny(msg, distressKeywords) {
		for _, trig := range s.triggers {
			if trig.Condition == policy.CondDistressSignal {
				return Abort(withResources(trig.Message, trig.Resources), false)
			}
		}
	}

	return Continue(t.Messages)
}

// keywordsFor returns the registered expansion for a topic, falling back
// to the topic label itself with underscores as spaces.
func (s *escalationStage) keywordsFor(topic string) []string {
	if kws, ok := s.topicKeywords[topic]; ok && len(kws) > 0 {
		return kws
	}
	return []string{strings.ReplaceAll(topic, "_", " ")}
}

func containsAny(haystack string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// withResources appends an attached resource list to a trigger message.
func withResources(msg string, resources []string) string {
	if len(resources) == 0 {
		return msg
	}
	return msg + "\n\n" + strings.Join(resources, "\n")
}
