// Package registry holds the keyword and pattern tables contributed by
// extension modules. A Registry is built once at startup and injected
// into stage construction, so merge order and override behavior are
// observable instead of depending on package load order.
package registry

import "fmt"

// Registry maps extension-module identifiers to their contributed
// escalation topics, scope keywords, and prohibited-action patterns.
// It is populated at boot and read-only afterwards.
type Registry struct {
	known            map[string]bool
	escalationTopics map[string]map[string][]string
	scopeKeywords    map[string]map[string][]string
	actionPatterns   map[string]map[string]string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		known:            make(map[string]bool),
		escalationTopics: make(map[string]map[string][]string),
		scopeKeywords:    make(map[string]map[string][]string),
		actionPatterns:   make(map[string]map[string]string),
	}
}

// Register marks a module as present without contributing any tables.
func (r *Registry) Register(module string) {
	r.known[module] = true
}

// RegisterEscalationTopics contributes topic → keyword expansions.
func (r *Registry) RegisterEscalationTopics(module string, topics map[string][]string) {
	r.known[module] = true
	r.escalationTopics[module] = topics
}

// RegisterScopeKeywords contributes scope id → keyword lists.
func (r *Registry) RegisterScopeKeywords(module string, scopes map[string][]string) {
	r.known[module] = true
	r.scopeKeywords[module] = scopes
}

// RegisterActionPatterns contributes action label → detection regex.
func (r *Registry) RegisterActionPatterns(module string, patterns map[string]string) {
	r.known[module] = true
	r.actionPatterns[module] = patterns
}

// EnsureModules fails if any referenced module was never registered.
// Called at agent construction so misconfiguration cannot surface
// mid-conversation.
func (r *Registry) EnsureModules(modules []string) error {
	for _, m := range modules {
		if !r.known[m] {
			return fmt.Errorf("extension module %q is not registered", m)
		}
	}
	return nil
}

// EscalationTopics merges topic expansions for the given modules by value.
// Later modules extend earlier ones; keyword lists for the same topic are
// concatenated.
func (r *Registry) EscalationTopics(modules []string) map[string][]string {
	merged := make(map[string][]string)
	for _, m := range modules {
		for topic, kws := range r.escalationTopics[m] {
			merged[topic] = append(merged[topic], kws...)
		}
	}
	return merged
}

// ScopeKeywords merges scope keyword lists for the given modules by value.
func (r *Registry) ScopeKeywords(modules []string) map[string][]string {
	merged := make(map[string][]string)
	for _, m := range modules {
		for scope, kws := range r.scopeKeywords[m] {
			merged[scope] = append(merged[scope], kws...)
		}
	}
	return merged
}

// ActionPatterns merges action detection patterns for the given modules.
// A later module overrides an earlier module's pattern for the same label.
func (r *Registry) ActionPatterns(modules []string) map[string]string {
	merged := make(map[string]string)
	for _, m := range modules {
		for label, pattern := range r.actionPatterns[m] {
			merged[label] = pattern
		}
	}
	return merged
}
