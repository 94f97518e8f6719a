package pipeline

import (
	"strings"
	"testing"

	"github.com/rkalmar/mandate/internal/audit"
	"github.com/rkalmar/mandate/internal/model"
	"github.com/rkalmar/mandate/internal/policy"
	"github.com/rkalmar/mandate/internal/registry"
	"github.com/rkalmar/mandate/internal/session"
)

// legalRegistry builds the registry used across pipeline tests, with a
// single legal_uk module contributing all three table kinds.
func legalRegistry() *registry.Registry {
	reg := registry.New()
	reg.RegisterEscalationTopics("legal_uk", map[string][]string{
		"illegal_eviction": {"changed the locks", "locked me out", "evicted without notice"},
		"harassment":       {"landlord is threatening", "turned off the electricity"},
	})
	reg.RegisterScopeKeywords("legal_uk", map[string][]string{
		"england":  {"assured shorthold", "section 21 notice"},
		"scotland": {"scotland", "scottish", "private residential tenancy"},
	})
	reg.RegisterActionPatterns("legal_uk", map[string]string{
		"legal_representation": `(?i)\b(i will represent you|acting as your (solicitor|lawyer))\b`,
	})
	return reg
}

func basePolicy() *policy.Policy {
	return &policy.Policy{
		Identity: policy.Identity{
			Name:            "tenancy-advisor",
			Version:         "1.0",
			RequiredModules: []string{"legal_uk"},
		},
		Capabilities: policy.Capabilities{
			Tools: []string{"legal-lookup", "formal-letter"},
		},
		Scope: policy.Scope{
			Allowed:       []string{"england"},
			OnUnsupported: policy.ScopeRefuse,
		},
	}
}

func userTurn(text string) *Turn {
	return &Turn{
		SessionID: "s1",
		Messages:  []model.Message{{Role: model.RoleUser, Content: text}},
	}
}

func answeredTurn(user, assistant string) *Turn {
	return &Turn{
		SessionID: "s1",
		Messages: []model.Message{
			{Role: model.RoleUser, Content: user},
			{Role: model.RoleAssistant, Content: assistant},
		},
	}
}

func mustPipeline(t *testing.T, p *policy.Policy, deps Deps) *Pipeline {
	t.Helper()
	if deps.Registry == nil {
		deps.Registry = legalRegistry()
	}
	pl, err := New(p, deps)
	if err != nil {
		t.Fatalf("pipeline construction: %v", err)
	}
	return pl
}

func TestNewFailsOnUnregisteredModule(t *testing.T) {
	p := basePolicy()
	p.Identity.RequiredModules = []string{"legal_uk", "medical_us"}

	_, err := New(p, Deps{Registry: legalRegistry()})
	if err == nil {
		t.Fatal("expected construction error for unregistered module")
	}
	if !strings.Contains(err.Error(), "medical_us") {
		t.Errorf("error should name the missing module: %v", err)
	}
}

func TestNewFailsOnBadDisclaimerPattern(t *testing.T) {
	p := basePolicy()
	p.Requirements.Disclaimers = []policy.DisclaimerRule{
		{Trigger: policy.TriggerCustom, Text: "x", Placement: policy.PlaceEnd, Pattern: `([`},
	}

	if _, err := New(p, Deps{Registry: legalRegistry()}); err == nil {
		t.Fatal("expected construction error for uncompilable pattern")
	}
}

func TestRetryableAbortHardensAtBudget(t *testing.T) {
	pl := mustPipeline(t, basePolicy(), Deps{})
	calls := []model.ToolCall{{Name: "email-send"}}

	res := pl.RunStep(userTurn("hi"), calls)
	if !res.Aborted || !res.Retryable {
		t.Fatalf("fresh interaction: expected retryable abort, got %+v", res)
	}

	exhausted := userTurn("hi")
	exhausted.RetryCount = MaxRetries
	res = pl.RunStep(exhausted, calls)
	if !res.Aborted || res.Retryable {
		t.Fatalf("at retry budget: expected terminal abort, got %+v", res)
	}
}

func TestRunResultTruncatesBeforeDisclaimer(t *testing.T) {
	p := basePolicy()
	p.Limits.MaxTokensPerTurn = 50
	p.Requirements.Disclaimers = []policy.DisclaimerRule{
		{Trigger: policy.TriggerAlways, Text: "This is general information, not legal advice.", Placement: policy.PlaceEnd},
	}
	pl := mustPipeline(t, p, Deps{Sessions: session.NewStore(nil)})

	turn := answeredTurn("tell me everything", strings.Repeat("a", 1000))
	res := pl.RunResult(turn)
	if res.Aborted {
		t.Fatalf("unexpected abort: %s", res.Reason)
	}

	text, _ := turn.LastAssistant()
	if !strings.Contains(text, TruncationNotice) {
		t.Error("expected truncation notice")
	}
	if !strings.HasSuffix(text, "This is general information, not legal advice.") {
		t.Error("disclaimer should be appended after truncation")
	}
}

func TestRunResultAuditSummaryAlwaysRecorded(t *testing.T) {
	rec := audit.NewMemoryRecorder()
	p := basePolicy()
	p.Requirements.Audit.Verbosity = policy.VerbosityFull
	pl := mustPipeline(t, p, Deps{Recorder: rec})

	pl.RunResult(answeredTurn("what is a deposit?", "A deposit is money held against damage."))

	entries := rec.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 summary entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Status != audit.StatusSuccess || e.PolicyName != "tenancy-advisor" {
		t.Errorf("unexpected summary entry: %+v", e)
	}
	if e.Input == "" || e.Output == "" {
		t.Error("full verbosity must include input and output")
	}
}

func TestAuditMinimalVerbosityOmitsContent(t *testing.T) {
	rec := audit.NewMemoryRecorder()
	p := basePolicy()
	p.Requirements.Audit.Verbosity = policy.VerbosityMinimal
	pl := mustPipeline(t, p, Deps{Recorder: rec})

	pl.RunResult(answeredTurn("question", "answer"))

	entries := rec.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Input != "" || entries[0].Output != "" {
		t.Error("minimal verbosity must omit conversation content")
	}
}
