package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rkalmar/mandate/internal/audit"
)

var (
	auditDB     string
	auditStatus string
	auditPolicy string
	auditSince  string
	auditLimit  int
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().StringVar(&auditDB, "db", audit.DefaultPath(), "Path to the audit database")
	auditCmd.Flags().StringVar(&auditStatus, "status", "", "Filter by status (success|blocked|escalated|error)")
	auditCmd.Flags().StringVar(&auditPolicy, "policy", "", "Filter by policy name")
	auditCmd.Flags().StringVar(&auditSince, "since", "", "Only entries at or after this RFC 3339 timestamp")
	auditCmd.Flags().IntVarP(&auditLimit, "limit", "n", 20, "Maximum number of entries to show")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit log",
	Long:  "Reads recent entries from the append-only audit database,\nmost recent first, and pretty-prints them as JSON.",
	RunE:  runAudit,
}

func runAudit(cmd *cobra.Command, args []string) error {
	store, err := audit.Open(auditDB)
	if err != nil {
		return err
	}
	defer store.Close()

	filter := audit.Filter{
		Status:     audit.Status(auditStatus),
		PolicyName: auditPolicy,
		Limit:      auditLimit,
	}
	if auditSince != "" {
		since, err := time.Parse(time.RFC3339, auditSince)
		if err != nil {
			return fmt.Errorf("invalid --since timestamp: %w", err)
		}
		filter.Since = since
	}

	entries, err := store.Query(filter)
	if err != nil {
		return err
	}

	for _, e := range entries {
		out, _ := json.MarshalIndent(e, "", "  ")
		fmt.Println(string(out))
	}
	fmt.Printf("%d entries\n", len(entries))
	return nil
}
