package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HueCodes/shipagent/internal/agent"
	"github.com/HueCodes/shipagent/internal/agentd"
	"github.com/HueCodes/shipagent/internal/config"
	"github.com/HueCodes/shipagent/internal/shipping"
	"github.com/HueCodes/shipagent/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "shipagentd ", log.Ldate|log.Ltime|log.Lmicroseconds|log.LUTC)

	cfg, err := config.ServerFromEnv()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	historyStore, err := store.Open(cfg)
	if err != nil {
		logger.Fatalf("failed to initialize history store: %v", err)
	}
	defer func() {
		if err := historyStore.Close(); err != nil {
			logger.Printf("store close error: %v", err)
		}
	}()

	chatAgent := agent.New(shipping.NewEngine(cfg.MockSeed), logger)
	srv := agentd.NewServer(logger, cfg.ListenAddr, chatAgent, historyStore)

	go func() {
		logger.Printf("listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server crashed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("server shutdown error: %v", err)
	}
}
