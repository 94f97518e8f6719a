// Package tools computes the exact tool subset a policy allows.
package tools

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rkalmar/mandate/internal/policy"
)

// Merge combines the tool identifiers offered by multiple sources
// (extension modules) into one set. Two sources offering the same
// identifier is a configuration error raised before resolution runs;
// tools are never silently shadowed.
func Merge(sources map[string][]string) ([]string, error) {
	owner := make(map[string]string)
	var all []string

	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, src := range names {
		for _, tool := range sources[src] {
			if prev, ok := owner[tool]; ok {
				return nil, fmt.Errorf("tool %q offered by both %q and %q", tool, prev, src)
			}
			owner[tool] = src
			all = append(all, tool)
		}
	}
	sort.Strings(all)
	return all, nil
}

// Resolve computes the subset of allTools the policy permits.
// A tool survives iff it is whitelisted, present in allTools, not exactly
// prohibited, and not prefix-matched by any wildcard prohibition.
// Whitelist order is preserved for determinism.
func Resolve(allTools []string, p *policy.Policy) []string {
	available := make(map[string]bool, len(allTools))
	for _, t := range allTools {
		available[t] = true
	}

	var exact []string
	var prefixes []string
	for _, banned := range p.Prohibitions.Tools {
		if prefix, ok := strings.CutSuffix(banned, "*"); ok {
			prefixes = append(prefixes, prefix)
		} else {
			exact = append(exact, banned)
		}
	}

	var allowed []string
	for _, tool := range p.Capabilities.Tools {
		if !available[tool] {
			continue
		}
		if matchesExact(tool, exact) || matchesPrefix(tool, prefixes) {
			continue
		}
		allowed = append(allowed, tool)
	}
	return allowed
}

func matchesExact(tool string, banned []string) bool {
	for _, b := range banned {
		if b == tool {
			return true
		}
	}
	return false
}

func matchesPrefix(tool string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(tool, p) {
			return true
		}
	}
	return false
}
