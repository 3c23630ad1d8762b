// Package cli implements the shipagent command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/HueCodes/shipagent/internal/config"
	"github.com/HueCodes/shipagent/internal/identity"
)

var serverURLFlag string

var rootCmd = &cobra.Command{
	Use:   "shipagent",
	Short: "Chat with the shipping operations assistant",
	Long: `shipagent is the terminal client for the shipping operations assistant.

It keeps a persistent session, streams assistant replies over a duplex
connection with automatic reconnection, and falls back to plain HTTP when
streaming is unavailable.

Quick start:
  shipagent chat                      # interactive chat
  shipagent send "rates to Chicago"   # one-shot question
  shipagent history                   # show past turns
  shipagent reset                     # start a fresh conversation`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURLFlag, "server", "", "Agent backend base URL (overrides config)")
}

func loadClientConfig() (config.Client, error) {
	cfg, err := config.ClientFromEnv()
	if err != nil {
		return config.Client{}, err
	}
	if serverURLFlag != "" {
		cfg.ServerURL = serverURLFlag
	}
	if err := cfg.Validate(); err != nil {
		return config.Client{}, err
	}
	return cfg, nil
}

func sessionManager(cfg config.Client) (*identity.Manager, error) {
	path := cfg.SessionFile
	if path == "" {
		resolved, err := identity.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = resolved
	}
	return identity.NewManager(path), nil
}
