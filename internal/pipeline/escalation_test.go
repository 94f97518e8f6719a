package pipeline

import (
	"strings"
	"testing"

	"github.com/rkalmar/mandate/internal/policy"
)

func escalationPolicy(triggers ...policy.EscalationTrigger) *policy.Policy {
	p := basePolicy()
	p.Escalation = triggers
	return p
}

func TestEscalationTopicMatchAborts(t *testing.T) {
	p := escalationPolicy(policy.EscalationTrigger{
		Condition: policy.CondTopicMatch,
		Topics:    []string{"illegal_eviction"},
		Action:    policy.ActionRefuseRedirect,
		Message:   "This may be an illegal eviction. Please contact Shelter.",
		Resources: []string{"Shelter: 0808 800 4444"},
	})
	stage := newEscalationStage(p, legalRegistry())

	res := stage.OnInput(userTurn("My landlord changed the locks while I was at work"))
	if !res.Aborted || res.Retryable {
		t.Fatalf("expected hard abort, got %+v", res)
	}
	if !strings.Contains(res.Reason, "illegal eviction") {
		t.Errorf("expected trigger message, got %q", res.Reason)
	}
	if !strings.Contains(res.Reason, "0808 800 4444") {
		t.Errorf("expected attached resources, got %q", res.Reason)
	}
}

func TestEscalationWarnActionDoesNotAbort(t *testing.T) {
	p := escalationPolicy(policy.EscalationTrigger{
		Condition: policy.CondTopicMatch,
		Topics:    []string{"harassment"},
		Action:    policy.ActionWarn,
		Message:   "heads up",
	})
	stage := newEscalationStage(p, legalRegistry())

	res := stage.OnInput(userTurn("my landlord is threatening to visit daily"))
	if res.Aborted {
		t.Fatalf("warn action must pass through, got %+v", res)
	}
}

func TestEscalationTopicFallsBackToLabel(t *testing.T) {
	p := escalationPolicy(policy.EscalationTrigger{
		Condition: policy.CondTopicMatch,
		Topics:    []string{"rent_strike"},
		Action:    policy.ActionRefuse,
		Message:   "cannot advise on this",
	})
	stage := newEscalationStage(p, legalRegistry())

	res := stage.OnInput(userTurn("should I join the rent strike next month?"))
	if !res.Aborted {
		t.Fatal("unregistered topic should match its own label with spaces")
	}
}

func TestEscalationDistressDetected(t *testing.T) {
	p := escalationPolicy(policy.EscalationTrigger{
		Condition: policy.CondDistressSignal,
		Action:    policy.ActionProvideResources,
		Message:   "You deserve support from a real person.",
		Resources: []string{"Samaritans: 116 123"},
	})
	stage := newEscalationStage(p, legalRegistry())

	res := stage.OnInput(userTurn("I'm being evicted and I can't go on"))
	if !res.Aborted {
		t.Fatal("expected distress escalation")
	}
	if !strings.Contains(res.Reason, "Samaritans") {
		t.Errorf("expected resources in reason, got %q", res.Reason)
	}
}

func TestEscalationIgnoresPriorTurns(t *testing.T) {
	p := escalationPolicy(policy.EscalationTrigger{
		Condition: policy.CondTopicMatch,
		Topics:    []string{"illegal_eviction"},
		Action:    policy.ActionRefuse,
		Message:   "escalate",
	})
	stage := newEscalationStage(p, legalRegistry())

	turn := answeredTurn("my landlord changed the locks", "that sounds serious")
	turn.Messages = append(turn.Messages, userTurn("thanks, unrelated question about bins").Messages...)

	if res := stage.OnInput(turn); res.Aborted {
		t.Error("only the latest user message should be scanned")
	}
}

func TestEscalationNoTriggersPassesThrough(t *testing.T) {
	stage := newEscalationStage(basePolicy(), legalRegistry())
	if res := stage.OnInput(userTurn("my landlord changed the locks")); res.Aborted {
		t.Error("no configured triggers means no escalation")
	}
}
