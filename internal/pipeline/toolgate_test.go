package pipeline

import (
	"strings"
	"testing"

	"github.com/rkalmar/mandate/internal/audit"
	"github.com/rkalmar/mandate/internal/model"
	"github.com/rkalmar/mandate/internal/policy"
)

func newGate(p *policy.Policy, rec audit.Recorder) *toolGateStage {
	if rec == nil {
		rec = audit.NewMemoryRecorder()
	}
	return newToolGateStage(p, nil, rec)
}

func TestToolGateBlocksNonWhitelisted(t *testing.T) {
	gate := newGate(basePolicy(), nil)

	res := gate.OnStep(userTurn("hi"), []model.ToolCall{{Name: "email-send"}})
	if !res.Aborted || !res.Retryable {
		t.Fatalf("expected retryable abort, got %+v", res)
	}
	if !strings.Contains(res.Reason, "email-send") {
		t.Errorf("reason should name the tool: %q", res.Reason)
	}
}

func TestToolGateWildcardProhibition(t *testing.T) {
	p := basePolicy()
	p.Capabilities.Tools = append(p.Capabilities.Tools, "payment_collect")
	p.Prohibitions.Tools = []string{"payment_*"}
	gate := newGate(p, nil)

	res := gate.OnStep(userTurn("hi"), []model.ToolCall{{Name: "payment_collect"}})
	if !res.Aborted {
		t.Fatal("expected prohibition abort")
	}
	if !strings.Contains(res.Reason, "payment_*") {
		t.Errorf("reason should name the matched prohibition: %q", res.Reason)
	}
}

func TestToolGateDataCategoryInArgs(t *testing.T) {
	p := basePolicy()
	p.Prohibitions.DataCategories = []string{"bank_details"}
	gate := newGate(p, nil)

	calls := []model.ToolCall{{
		Name: "legal-lookup",
		Args: map[string]any{"query": "tenant bank details for account 12345"},
	}}
	res := gate.OnStep(userTurn("hi"), calls)
	if !res.Aborted || !res.Retryable {
		t.Fatalf("expected retryable abort, got %+v", res)
	}
}

func TestToolGateBatchCap(t *testing.T) {
	p := basePolicy()
	p.Limits.MaxToolCallsPerTurn = 2
	gate := newGate(p, nil)

	calls := []model.ToolCall{
		{Name: "legal-lookup"}, {Name: "legal-lookup"}, {Name: "legal-lookup"},
	}
	res := gate.OnStep(userTurn("hi"), calls)
	if !res.Aborted || !res.Retryable {
		t.Fatalf("expected retryable abort, got %+v", res)
	}
	if !strings.Contains(res.Reason, "3 proposed, limit 2") {
		t.Errorf("unexpected reason: %q", res.Reason)
	}
}

func TestToolGateAuditsEveryDecision(t *testing.T) {
	rec := audit.NewMemoryRecorder()
	gate := newGate(basePolicy(), rec)

	calls := []model.ToolCall{
		{Name: "legal-lookup", Args: map[string]any{"query": "deposit protection"}},
		{Name: "formal-letter"},
	}
	res := gate.OnStep(userTurn("hi"), calls)
	if res.Aborted {
		t.Fatalf("unexpected abort: %s", res.Reason)
	}

	entries := rec.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected one audit entry per allowed call, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Status != audit.StatusSuccess || e.CheckResult != "allowed" {
			t.Errorf("unexpected entry: %+v", e)
		}
		if e.ToolCalls == "" {
			t.Error("allowed entries should carry the serialized call")
		}
	}
}

func TestToolGateBlockedDecisionAudited(t *testing.T) {
	rec := audit.NewMemoryRecorder()
	gate := newGate(basePolicy(), rec)

	gate.OnStep(userTurn("hi"), []model.ToolCall{{Name: "email-send"}})

	entries := rec.Entries()
	if len(entries) != 1 || entries[0].Status != audit.StatusBlocked {
		t.Fatalf("expected one blocked entry, got %+v", entries)
	}
	if entries[0].CheckName != "whitelist" {
		t.Errorf("expected whitelist check, got %q", entries[0].CheckName)
	}
}

func TestToolGateEmptyBatchPasses(t *testing.T) {
	gate := newGate(basePolicy(), nil)
	if res := gate.OnStep(userTurn("hi"), nil); res.Aborted {
		t.Errorf("empty batch must pass, got %+v", res)
	}
}
