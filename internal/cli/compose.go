package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rkalmar/mandate/internal/policy"
)

func init() {
	rootCmd.AddCommand(composeCmd)
}

var composeCmd = &cobra.Command{
	Use:   "compose <a.yaml> <b.yaml> [more...]",
	Short: "Merge policies into one effective policy",
	Long: "Merges multiple policy documents using restriction-only rules\n" +
		"(capabilities intersect, prohibitions union, limits take the\n" +
		"minimum) and prints the effective policy as YAML.",
	Args: cobra.MinimumNArgs(1),
	RunE: runCompose,
}

func runCompose(cmd *cobra.Command, args []string) error {
	policies := make([]*policy.Policy, 0, len(args))
	for _, path := range args {
		p, err := policy.ParseFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if result := policy.Validate(p); !result.Valid {
			return fmt.Errorf("%s: policy is inconsistent: %v", path, result.Errors)
		}
		policies = append(policies, p)
	}

	composed, err := policy.Compose(policies)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(composed)
	if err != nil {
		return fmt.Errorf("marshal composed policy: %w", err)
	}
	fmt.Print(string(out))
	return nil
}
