package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Print the current session identifier",
	RunE:  runSession,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
}

func runSession(cmd *cobra.Command, args []string) error {
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
	fmt.Println(sessionID)
	return nil
}
