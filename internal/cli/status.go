package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rkalmar/mandate/internal/client"
)

var statusServer string

func init() {
	statusCmd.Flags().StringVar(&statusServer, "server", "http://127.0.0.1:8787", "guard server base URL")
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the health and active policy of a running guard server",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	h, err := client.New(statusServer).Healthz(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("status: %s\npolicy: %s\n", h.Status, h.Policy)
	return nil
}
