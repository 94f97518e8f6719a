package policy

import (
	"strings"
	"testing"
)

func validPolicy() *Policy {
	return &Policy{
		Identity: Identity{
			Name:            "test",
			Version:         "1.0",
			RequiredModules: []string{"legal_uk"},
		},
		Capabilities: Capabilities{Tools: []string{"legal-lookup"}},
		Scope:        Scope{Allowed: []string{"england"}},
	}
}

func TestValidateCleanPolicy(t *testing.T) {
	result := Validate(validPolicy())
	if !result.Valid {
		t.Fatalf("expected valid, got errors: %v", result.Errors)
	}
}

func TestValidateWhitelistProhibitionCollision(t *testing.T) {
	p := validPolicy()
	p.Capabilities.Tools = []string{"formal-letter", "email-send"}
	p.Prohibitions.Tools = []string{"email-send"}

	result := Validate(p)
	if result.Valid {
		t.Fatal("expected invalid")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "email-send") {
		t.Errorf("error should name the colliding tool, got %v", result.Errors)
	}
}

func TestValidateWildcardCollision(t *testing.T) {
	p := validPolicy()
	p.Capabilities.Tools = []string{"payment_collect"}
	p.Prohibitions.Tools = []string{"payment_*"}

	result := Validate(p)
	if result.Valid {
		t.Fatal("expected invalid: wildcard prohibition covers a whitelisted tool")
	}
}

func TestValidateTopicMatchNeedsTopics(t *testing.T) {
	p := validPolicy()
	p.Escalation = []EscalationTrigger{
		{Condition: CondTopicMatch, Action: ActionRefuse, Message: "no"},
	}

	result := Validate(p)
	if result.Valid {
		t.Fatal("expected invalid: topic_match with no topics")
	}
}

func TestValidateConfidenceNeedsThreshold(t *testing.T) {
	p := validPolicy()
	p.Escalation = []EscalationTrigger{
		{Condition: CondConfidenceBelow, Action: ActionWarn, Message: "unsure"},
	}

	result := Validate(p)
	if result.Valid {
		t.Fatal("expected invalid: confidence_below with no threshold")
	}
}

func TestValidateCustomDisclaimerNeedsPattern(t *testing.T) {
	p := validPolicy()
	p.Requirements.Disclaimers = []DisclaimerRule{
		{Trigger: TriggerCustom, Text: "careful now", Placement: PlaceEnd},
	}

	result := Validate(p)
	if result.Valid {
		t.Fatal("expected invalid: custom trigger with no pattern")
	}
}

func TestValidateWarnings(t *testing.T) {
	p := &Policy{
		Identity:     Identity{Name: "warny"},
		Capabilities: Capabilities{Tools: []string{"legal-lookup"}},
		Requirements: Requirements{
			Citations: &CitationPolicy{Required: true, MinPerClaim: 0},
		},
		Limits: Limits{MaxTokensPerTurn: 5000, DailyTokenBudget: 1000},
	}

	result := Validate(p)
	if !result.Valid {
		t.Fatalf("warnings must not invalidate: %v", result.Errors)
	}
	if len(result.Warnings) != 4 {
		t.Errorf("expected 4 warnings (modules, budget, scope, citations), got %d: %v",
			len(result.Warnings), result.Warnings)
	}
}

func TestValidateDoesNotMutate(t *testing.T) {
	p := validPolicy()
	p.Prohibitions.Tools = []string{"email-send"}
	before := len(p.Prohibitions.Tools)

	Validate(p)

	if len(p.Prohibitions.Tools) != before {
		t.Error("Validate must not mutate the document")
	}
}
