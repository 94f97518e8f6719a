package policy

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldError is one structural defect at a document field path.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return e.Path + ": " + e.Message
}

// ParseError reports every structural defect found in a document.
// A document is never partially accepted.
type ParseError struct {
	Fields []FieldError
}

func (e *ParseError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("invalid policy document: %s", strings.Join(parts, "; "))
}

// Parse decodes and structurally validates a serialized policy document.
// It checks shape only (required fields, known fields, legal enum values);
// cross-field consistency is the caller's job via Validate.
func Parse(raw []byte) (*Policy, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var p Policy
	if err := dec.Decode(&p); err != nil {
		return nil, &ParseError{Fields: []FieldError{{Path: "document", Message: err.Error()}}}
	}

	if errs := checkStructure(&p); len(errs) > 0 {
		return nil, &ParseError{Fields: errs}
	}
	return &p, nil
}

// ParseFile reads and parses a policy document from disk.
func ParseFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return Parse(data)
}

// IsParseError reports whether err is a structural parse failure.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// checkStructure collects every structural defect, not just the first.
func checkStructure(p *Policy) []FieldError {
	var errs []FieldError
	add := func(path, msg string) {
		errs = append(errs, FieldError{Path: path, Message: msg})
	}

	if p.Identity.Name == "" {
		add("identity.name", "required")
	}

	for i, rule := range p.Capabilities.DataAccess {
		path := fmt.Sprintf("capabilities.data_access[%d]", i)
		if rule.Scope == "" {
			add(path+".scope", "required")
		}
		if len(rule.Permissions) == 0 {
			add(path+".permissions", "required")
		}
		for _, perm := range rule.Permissions {
			if perm != "read" && perm != "write" {
				add(path+".permissions", fmt.Sprintf("unknown permission %q (want read or write)", perm))
			}
		}
	}

	for i, d := range p.Requirements.Disclaimers {
		path := fmt.Sprintf("requirements.disclaimers[%d]", i)
		if d.Text == "" {
			add(path+".text", "required")
		}
		switch d.Trigger {
		case TriggerAlways, TriggerDocument, TriggerClaim, TriggerLegalClaim, TriggerCustom:
		case "":
			add(path+".trigger", "required")
		default:
			add(path+".trigger", fmt.Sprintf("unknown trigger %q", d.Trigger))
		}
		switch d.Placement {
		case PlaceStart, PlaceEnd, PlaceBoth:
		case "":
			add(path+".placement", "required")
		default:
			add(path+".placement", fmt.Sprintf("unknown placement %q (want start, end, or both)", d.Placement))
		}
	}

	if c := p.Requirements.Citations; c != nil && c.MinPerClaim < 0 {
		add("requirements.citations.min_per_claim", "must not be negative")
	}

	if v := p.Requirements.Audit.Verbosity; v != "" {
		switch v {
		case VerbosityMinimal, VerbosityStandard, VerbosityFull:
		default:
			add("requirements.audit.verbosity", fmt.Sprintf("unknown verbosity %q", v))
		}
	}

	if b := p.Scope.OnUnsupported; b != "" {
		switch b {
		case ScopeEscalate, ScopeRefuse, ScopeWarnAndAttempt:
		default:
			add("scope.on_unsupported", fmt.Sprintf("unknown behavior %q", b))
		}
	}

	for i, t := range p.Escalation {
		path := fmt.Sprintf("escalation[%d]", i)
		if t.Condition == "" {
			add(path+".condition", "required")
		}
		switch t.Action {
		case ActionWarn, ActionRefuseRedirect, ActionProvideResources, ActionDiscloseDefer, ActionRefuse:
		case "":
			add(path+".action", "required")
		default:
			add(path+".action", fmt.Sprintf("unknown action %q", t.Action))
		}
	}

	checkNonNegative := func(path string, v int) {
		if v < 0 {
			add(path, "must not be negative")
		}
	}
	checkNonNegative("limits.max_tokens_per_turn", p.Limits.MaxTokensPerTurn)
	checkNonNegative("limits.max_tool_calls_per_turn", p.Limits.MaxToolCallsPerTurn)
	checkNonNegative("limits.max_turns_per_session", p.Limits.MaxTurnsPerSession)
	checkNonNegative("limits.max_concurrent_sessions", p.Limits.MaxConcurrentSessions)
	checkNonNegative("limits.daily_token_budget", p.Limits.DailyTokenBudget)
	checkNonNegative("limits.turn_timeout_seconds", p.Limits.TurnTimeoutSeconds)

	return errs
}

// normalizeExt lowercases an extension and strips a leading dot.
func normalizeExt(ext string) string {
	return strings.TrimPrefix(strings.ToLower(ext), ".")
}
