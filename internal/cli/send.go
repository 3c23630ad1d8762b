package cli

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HueCodes/shipagent/internal/chatwire"
	"github.com/HueCodes/shipagent/internal/dispatch"
	"github.com/HueCodes/shipagent/internal/interp"
	"github.com/HueCodes/shipagent/internal/ledger"
	"github.com/HueCodes/shipagent/internal/transport"
)

var sendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send one message and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := loadClientConfig()
	if err != nil {
		return err
	}
	manager, err := sessionManager(cfg)
	if err != nil {
		return err
	}

	logger := log.New(os.Stderr, "", 0)
	transcript := ledger.New()
	interpreter := interp.New(transcript, logger)

	streamURL, err := transport.StreamURL(cfg.ServerURL)
	if err != nil {
		return err
	}
	// Deliberately never connected: one-shot sends take the HTTP path.
	conn := transport.New(streamURL, func(chatwire.Event) {}, nil, logger)
	dispatcher := dispatch.New(conn, interpreter, manager.Get, cfg.ServerURL, logger)

	if err := dispatcher.SendMessage(cmd.Context(), strings.Join(args, " ")); err != nil {
		return err
	}

	msgs := transcript.Messages()
	if len(msgs) == 0 {
		return fmt.Errorf("no reply received")
	}
	last := msgs[len(msgs)-1]
	fmt.Println(last.Content)
	if last.Role == ledger.RoleSystem {
		return fmt.Errorf("request failed")
	}
	return nil
}
