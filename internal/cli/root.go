// Package cli implements the mandate command-line surface.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mandate",
	Short: "Deterministic policy enforcement for conversational agents",
	Long: "Compiles a declarative policy document into an ordered chain of\n" +
		"enforcement stages that intercept every message entering and leaving\n" +
		"an agent: tool gating, scope checks, citation and disclaimer rules,\n" +
		"resource budgets, and an append-only audit log.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
