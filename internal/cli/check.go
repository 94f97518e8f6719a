package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rkalmar/mandate/internal/policy"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check <policy.yaml>",
	Short: "Parse and validate a policy document",
	Long: "Structurally parses a policy document, then checks cross-field\n" +
		"consistency. Exit code 0 if the policy is deployable, 1 otherwise.\n" +
		"Use in CI to gate policy changes.",
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	p, err := policy.ParseFile(args[0])
	if err != nil {
		var pe *policy.ParseError
		if errors.As(err, &pe) {
			fmt.Fprintf(os.Stderr, "STRUCTURAL ERRORS (%d):\n", len(pe.Fields))
			for _, f := range pe.Fields {
				fmt.Fprintf(os.Stderr, "  %s\n", f.String())
			}
			os.Exit(1)
		}
		return err
	}

	result := policy.Validate(p)
	for _, w := range result.Warnings {
		fmt.Printf("WARN: %s\n", w)
	}
	if !result.Valid {
		fmt.Fprintf(os.Stderr, "CONSISTENCY ERRORS (%d):\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "  %s\n", e)
		}
		os.Exit(1)
	}

	fmt.Printf("OK: policy %q (version %s) is valid\n", p.Identity.Name, p.Identity.Version)
	return nil
}
