package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rkalmar/mandate/internal/policy"
	"github.com/rkalmar/mandate/internal/policydiff"
)

var diffJSON bool

func init() {
	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(diffCmd)
}

var diffCmd = &cobra.Command{
	Use:   "diff <old.yaml> <new.yaml>",
	Short: "Compare two policy documents",
	Long: "Compares two policy documents field by field and marks each\n" +
		"change as stricter or looser, so a policy update can be reviewed\n" +
		"before it goes live.",
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func runDiff(cmd *cobra.Command, args []string) error {
	old, err := policy.ParseFile(args[0])
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	new, err := policy.ParseFile(args[1])
	if err != nil {
		return fmt.Errorf("%s: %w", args[1], err)
	}

	r := policydiff.Diff(old, new)
	r.OldPath, r.NewPath = args[0], args[1]

	if diffJSON {
		out, err := policydiff.FormatJSON(r)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}
	fmt.Print(policydiff.FormatText(r))
	return nil
}
