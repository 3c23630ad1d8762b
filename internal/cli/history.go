package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/HueCodes/shipagent/internal/archive"
	"github.com/HueCodes/shipagent/internal/history"
	"github.com/HueCodes/shipagent/internal/ledger"
)

var (
	historyLimitFlag int
	historyLocalFlag bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past turns for the current session",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimitFlag, "limit", 0, "Maximum number of turns to show (0 uses the configured limit)")
	historyCmd.Flags().BoolVar(&historyLocalFlag, "local", false, "Read from the local transcript archive instead of the server")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
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

	if historyLocalFlag {
		return printLocalHistory(cmd, cfg.ArchiveDB, sessionID)
	}

	limit := cfg.HistoryLimit
	if historyLimitFlag > 0 {
		limit = historyLimitFlag
	}

	client := history.NewClient(cfg.ServerURL, log.New(os.Stderr, "", 0))
	msgs, err := client.Fetch(cmd.Context(), sessionID, limit)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		fmt.Println("No history for session", sessionID)
		return nil
	}

	for _, msg := range msgs {
		fmt.Printf("[%s] %s\n", roleLabel(msg.Role), msg.Content)
	}
	return nil
}

func printLocalHistory(cmd *cobra.Command, archivePath, sessionID string) error {
	if archivePath == "" {
		return fmt.Errorf("no archive configured; set %s", "SHIPAGENT_ARCHIVE_DB")
	}
	a, err := archive.Open(archivePath)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.List(cmd.Context(), sessionID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No archived transcript for session", sessionID)
		return nil
	}
	for _, entry := range entries {
		fmt.Printf("[%s] %s\n", roleLabel(entry.Role), entry.Content)
	}
	return nil
}

func roleLabel(role ledger.Role) string {
	switch role {
	case ledger.RoleUser:
		return "you"
	case ledger.RoleAssistant:
		return "agent"
	default:
		return "system"
	}
}
