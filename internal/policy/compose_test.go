package policy

import (
	"errors"
	"testing"
)

func TestComposeEmptyFails(t *testing.T) {
	_, err := Compose(nil)
	if !errors.Is(err, ErrNoPolicies) {
		t.Fatalf("expected ErrNoPolicies, got %v", err)
	}
}

func TestComposeSingleIsIdentity(t *testing.T) {
	p := validPolicy()
	out, err := Compose([]*Policy{p})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != p {
		t.Error("composing one policy must return the same instance")
	}
}

func TestComposeIntersectsTools(t *testing.T) {
	a := validPolicy()
	a.Capabilities.Tools = []string{"legal-lookup", "formal-letter", "math"}
	b := validPolicy()
	b.Identity.Name = "other"
	b.Capabilities.Tools = []string{"formal-letter", "math", "web-fetch"}

	out, err := Compose([]*Policy{a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"formal-letter", "math"}
	if len(out.Capabilities.Tools) != len(want) {
		t.Fatalf("expected %v, got %v", want, out.Capabilities.Tools)
	}
	for i, tool := range want {
		if out.Capabilities.Tools[i] != tool {
			t.Errorf("expected %v, got %v", want, out.Capabilities.Tools)
		}
	}
}

func TestComposeUnionsProhibitions(t *testing.T) {
	a := validPolicy()
	a.Prohibitions.Tools = []string{"email-send"}
	b := validPolicy()
	b.Identity.Name = "other"
	b.Prohibitions.Tools = []string{"payment_*", "email-send"}

	out, _ := Compose([]*Policy{a, b})
	if len(out.Prohibitions.Tools) != 2 {
		t.Errorf("expected deduplicated union of 2, got %v", out.Prohibitions.Tools)
	}
}

func TestComposeTakesMinimumLimits(t *testing.T) {
	a := validPolicy()
	a.Limits = Limits{MaxTokensPerTurn: 2048, MaxTurnsPerSession: 10, DailyTokenBudget: 50000}
	b := validPolicy()
	b.Identity.Name = "other"
	b.Limits = Limits{MaxTokensPerTurn: 1024, MaxTurnsPerSession: 30, MaxToolCallsPerTurn: 3}

	out, _ := Compose([]*Policy{a, b})
	if out.Limits.MaxTokensPerTurn != 1024 {
		t.Errorf("expected min 1024, got %d", out.Limits.MaxTokensPerTurn)
	}
	if out.Limits.MaxTurnsPerSession != 10 {
		t.Errorf("expected min 10, got %d", out.Limits.MaxTurnsPerSession)
	}
	// Zero means unset and defers to the configured side.
	if out.Limits.MaxToolCallsPerTurn != 3 {
		t.Errorf("expected 3, got %d", out.Limits.MaxToolCallsPerTurn)
	}
	if out.Limits.DailyTokenBudget != 50000 {
		t.Errorf("expected 50000, got %d", out.Limits.DailyTokenBudget)
	}
}

func TestComposeDeduplicatesDisclaimers(t *testing.T) {
	p := validPolicy()
	p.Requirements.Disclaimers = []DisclaimerRule{
		{Trigger: TriggerAlways, Text: "Not legal advice.", Placement: PlaceEnd},
	}

	out, _ := Compose([]*Policy{p, p, p})
	if len(out.Requirements.Disclaimers) != 1 {
		t.Errorf("expected 1 deduplicated disclaimer, got %d", len(out.Requirements.Disclaimers))
	}
}

func TestComposeIntersectsScopes(t *testing.T) {
	a := validPolicy()
	a.Scope.Allowed = []string{"england", "wales"}
	a.Scope.OnUnsupported = ScopeWarnAndAttempt
	b := validPolicy()
	b.Identity.Name = "other"
	b.Scope.Allowed = []string{"wales", "scotland"}
	b.Scope.OnUnsupported = ScopeRefuse

	out, _ := Compose([]*Policy{a, b})
	if len(out.Scope.Allowed) != 1 || out.Scope.Allowed[0] != "wales" {
		t.Errorf("expected [wales], got %v", out.Scope.Allowed)
	}
	if out.Scope.OnUnsupported != ScopeRefuse {
		t.Errorf("expected most restrictive behavior refuse, got %s", out.Scope.OnUnsupported)
	}
}

func TestComposeForcesFullAuditVerbosity(t *testing.T) {
	a := validPolicy()
	a.Requirements.Audit = AuditPolicy{Verbosity: VerbosityMinimal, RetentionDays: 30}
	b := validPolicy()
	b.Identity.Name = "other"
	b.Requirements.Audit = AuditPolicy{Verbosity: VerbosityStandard, RetentionDays: 365}

	out, _ := Compose([]*Policy{a, b})
	if out.Requirements.Audit.Verbosity != VerbosityFull {
		t.Errorf("expected full verbosity, got %s", out.Requirements.Audit.Verbosity)
	}
	if out.Requirements.Audit.RetentionDays != 365 {
		t.Errorf("expected retention 365, got %d", out.Requirements.Audit.RetentionDays)
	}
}

func TestComposeSynthesizesName(t *testing.T) {
	a := validPolicy()
	b := validPolicy()
	b.Identity.Name = "other"

	out, _ := Compose([]*Policy{a, b})
	if out.Identity.Name != "composed:test+other" {
		t.Errorf("unexpected composed name %q", out.Identity.Name)
	}
}
