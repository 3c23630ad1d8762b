package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/HueCodes/shipagent/internal/history"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Start a fresh conversation",
	Long: `Reset clears the server-side conversation for the current session and
replaces the local session identifier. The old transcript is not recoverable
through the client afterwards.`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg, err := loadClientConfig()
	if err != nil {
		return err
	}
	manager, err := sessionManager(cfg)
	if err != nil {
		return err
	}
	sessionID, err := manager.Get()
	if err != nil {
		return err
	}

	logger := log.New(os.Stderr, "", 0)
	client := history.NewClient(cfg.ServerURL, logger)
	if err := client.Reset(cmd.Context(), sessionID); err != nil {
		// A new local identity still isolates the next conversation.
		logger.Printf("warning: server reset failed: %v", err)
	}

	fresh, err := manager.Reset()
	if err != nil {
		return err
	}
	fmt.Println("New session:", fresh)
	return nil
}
