package model

import (
	"encoding/json"
	"sort"
)

// ToolCall describes one proposed tool invocation received from the agent
// runtime. Args is an arbitrarily nested structure of primitives; the
// pipeline never executes the call, it only inspects it.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ArgsJSON returns the call's arguments serialized as JSON.
// Used for keyword scanning and audit logging; returns "{}" on nil args.
func (tc ToolCall) ArgsJSON() string {
	if tc.Args == nil {
		return "{}"
	}
	b, err := json.Marshal(tc.Args)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// MarshalCalls serializes a batch of tool calls for audit storage.
func MarshalCalls(calls []ToolCall) string {
	if len(calls) == 0 {
		return ""
	}
	b, err := json.Marshal(calls)
	if err != nil {
		return ""
	}
	return string(b)
}

// StringValues recursively extracts every string value from a nested
// argument structure. Map keys are visited in sorted order so output is
// deterministic.
func StringValues(v any) []string {
	var out []string
	collectStrings(v, &out)
	return out
}

func collectStrings(v any, out *[]string) {
	switch x := v.(type) {
	case string:
		*out = append(*out, x)
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectStrings(x[k], out)
		}
	case []any:
		for _, e := range x {
			collectStrings(e, out)
		}
	}
}
