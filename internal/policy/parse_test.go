package policy

import (
	"errors"
	"strings"
	"testing"
)

func TestParseDefaultDocument(t *testing.T) {
	p, err := Parse([]byte(DefaultDocumentYAML()))
	if err != nil {
		t.Fatalf("default document should parse: %v", err)
	}
	if p.Identity.Name != "tenancy-advisor" {
		t.Errorf("expected name tenancy-advisor, got %q", p.Identity.Name)
	}
	if len(p.Capabilities.Tools) != 2 {
		t.Errorf("expected 2 tools, got %d", len(p.Capabilities.Tools))
	}
	if p.Requirements.Citations == nil || !p.Requirements.Citations.Required {
		t.Error("expected citations required")
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	doc := `
identity:
  name: test
  typo_field: oops
`
	_, err := Parse([]byte(doc))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
	if !IsParseError(err) {
		t.Fatalf("expected ParseError, got %T", err)
	}
}

func TestParseMissingNameIsStructural(t *testing.T) {
	doc := `
identity:
  description: no name here
`
	_, err := Parse([]byte(doc))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if !hasField(pe, "identity.name") {
		t.Errorf("expected identity.name error, got %v", pe.Fields)
	}
}

func TestParseCollectsEveryDefect(t *testing.T) {
	doc := `
identity:
  description: missing name
requirements:
  disclaimers:
    - trigger: sometimes
      placement: middle
scope:
  on_unsupported: explode
escalation:
  - condition: topic_match
    action: detonate
limits:
  max_turns_per_session: -1
`
	_, err := Parse([]byte(doc))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}

	want := []string{
		"identity.name",
		"requirements.disclaimers[0].text",
		"requirements.disclaimers[0].trigger",
		"requirements.disclaimers[0].placement",
		"scope.on_unsupported",
		"escalation[0].action",
		"limits.max_turns_per_session",
	}
	for _, path := range want {
		if !hasField(pe, path) {
			t.Errorf("missing expected error at %s; got %v", path, pe.Fields)
		}
	}
}

func TestParseErrorMessageListsPaths(t *testing.T) {
	_, err := Parse([]byte("identity: {}"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "identity.name") {
		t.Errorf("error should name the field path: %v", err)
	}
}

func hasField(pe *ParseError, path string) bool {
	for _, f := range pe.Fields {
		if f.Path == path {
			return true
		}
	}
	return false
}
