package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rkalmar/mandate/internal/client"
	"github.com/rkalmar/mandate/internal/model"
)

var (
	sendServer  string
	sendSession string
)

func init() {
	sendCmd.Flags().StringVar(&sendServer, "server", "http://127.0.0.1:8787", "guard server base URL")
	sendCmd.Flags().StringVar(&sendSession, "session", "", "session id (generated by the server if empty)")
	rootCmd.AddCommand(sendCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Run a user message through a guard server's input hook",
	Long: "Sends one user message to a running guard server and prints the\n" +
		"enforcement decision. Useful for probing a policy before wiring\n" +
		"the hooks into an agent runtime.",
	Args: cobra.ExactArgs(1),
	RunE: runSend,
}

func runSend(cmd *cobra.Command, args []string) error {
	resp, err := client.New(sendServer).Input(cmd.Context(), client.HookRequest{
		SessionID: sendSession,
		Messages:  []model.Message{{Role: model.RoleUser, Content: args[0]}},
	})
	if err != nil {
		return err
	}

	fmt.Printf("session: %s\naction:  %s\n", resp.SessionID, resp.Action)
	if resp.Aborted() {
		fmt.Printf("reason:  %s\nretryable: %t\n", resp.Reason, resp.Retryable)
	}
	return nil
}
