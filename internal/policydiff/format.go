package policydiff

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatText renders the diff result as human-readable text.
func FormatText(r *DiffResult) string {
	if !r.HasChanges {
		return fmt.Sprintf("Policy diff: %s → %s\n\nNo changes detected.\n", r.OldPath, r.NewPath)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Policy diff: %s → %s\n", r.OldPath, r.NewPath)

	limits := filterChanges(r.Changes, "limits.")
	scalars := filterOutPrefix(r.Changes, "limits.")

	if len(scalars) > 0 {
		b.WriteString("\n")
		for _, c := range scalars {
			fmt.Fprintf(&b, "  %-36s %s → %s", c.Field+":", c.Old, c.New)
			if c.Comment != "" {
				fmt.Fprintf(&b, "  (%s)", c.Comment)
			}
			b.WriteString("\n")
		}
	}

	if len(limits) > 0 {
		b.WriteString("\n  Limits:\n")
		for _, c := range limits {
			name := strings.TrimPrefix(c.Field, "limits.")
			fmt.Fprintf(&b, "    %-26s %s → %s", name+":", c.Old, c.New)
			if c.Comment != "" {
				fmt.Fprintf(&b, "  (%s)", c.Comment)
			}
			b.WriteString("\n")
		}
	}

	if len(r.ListChanges) > 0 {
		section := ""
		for _, lc := range r.ListChanges {
			if lc.Section != section {
				section = lc.Section
				fmt.Fprintf(&b, "\n  %s:\n", section)
			}
			sign := "+"
			if lc.Type == "removed" {
				sign = "-"
			}
			fmt.Fprintf(&b, "    %s %s", sign, lc.Entry)
			if lc.Comment != "" {
				fmt.Fprintf(&b, "  (%s)", lc.Comment)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

// FormatJSON renders the diff result as JSON.
func FormatJSON(r *DiffResult) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal diff result: %w", err)
	}
	return string(data), nil
}

func filterChanges(changes []Change, prefix string) []Change {
	var out []Change
	for _, c := range changes {
		if strings.HasPrefix(c.Field, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func filterOutPrefix(changes []Change, prefix string) []Change {
	var out []Change
	for _, c := range changes {
		if !strings.HasPrefix(c.Field, prefix) {
			out = append(out, c)
		}
	}
	return out
}
