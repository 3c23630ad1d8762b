package cli

import (
	"context"
	"io"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/HueCodes/shipagent/internal/archive"
	"github.com/HueCodes/shipagent/internal/chatwire"
	"github.com/HueCodes/shipagent/internal/config"
	"github.com/HueCodes/shipagent/internal/dispatch"
	"github.com/HueCodes/shipagent/internal/history"
	"github.com/HueCodes/shipagent/internal/interp"
	"github.com/HueCodes/shipagent/internal/ledger"
	"github.com/HueCodes/shipagent/internal/transport"
	"github.com/HueCodes/shipagent/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
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

	// The TUI owns the terminal, so diagnostics are silenced.
	logger := log.New(io.Discard, "", 0)
	transcript := ledger.New()
	interpreter := interp.New(transcript, logger)

	streamURL, err := transport.StreamURL(cfg.ServerURL)
	if err != nil {
		return err
	}

	// notify is assigned before Connect starts any goroutine.
	var notify func()
	conn := transport.New(streamURL,
		func(ev chatwire.Event) { interpreter.HandleEvent(ev) },
		func(bool) {
			if notify != nil {
				notify()
			}
		},
		logger,
	)
	dispatcher := dispatch.New(conn, interpreter, manager.Get, cfg.ServerURL, logger)

	app := tui.NewModel(tui.Deps{
		Ledger:     transcript,
		Interp:     interpreter,
		Dispatcher: dispatcher,
		Transport:  conn,
		SessionID:  sessionID,
	})
	notify = app.Notify
	transcript.SetObserver(app.Notify)
	interpreter.SetOnChange(app.Notify)

	hydrate(cmd.Context(), cfg, sessionID, transcript, logger)

	_ = conn.Connect()
	defer conn.Disconnect()

	program := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return err
	}

	if cfg.ArchiveDB != "" {
		archiveTranscript(cfg.ArchiveDB, sessionID, transcript, logger)
	}
	return nil
}

// hydrate seeds the transcript from server history, falling back to the
// welcome entry when the server is unreachable or the history is empty.
func hydrate(ctx context.Context, cfg config.Client, sessionID string, transcript *ledger.Ledger, logger *log.Logger) {
	fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := history.NewClient(cfg.ServerURL, logger)
	msgs, err := client.Fetch(fetchCtx, sessionID, cfg.HistoryLimit)
	if err != nil || len(msgs) == 0 {
		transcript.Reset()
		return
	}
	transcript.ReplaceAll(msgs)
}

func archiveTranscript(path, sessionID string, transcript *ledger.Ledger, logger *log.Logger) {
	a, err := archive.Open(path)
	if err != nil {
		logger.Printf("open archive: %v", err)
		return
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, msg := range transcript.Messages() {
		if err := a.Record(ctx, sessionID, msg); err != nil {
			logger.Printf("archive transcript: %v", err)
			return
		}
	}
}
