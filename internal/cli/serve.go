package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lazypower/focusdrift/internal/engine"
	"github.com/lazypower/focusdrift/internal/llm"
	"github.com/lazypower/focusdrift/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Live monitors do not survive a restart.
	if n, err := db.ExpireActiveSessions(); err != nil {
		log.Warn("expire stale sessions", zap.Error(err))
	} else if n > 0 {
		log.Info("expired sessions from previous run", zap.Int64("count", n))
	}

	llmClient, err := llm.NewClient(cfg.LLM)
	switch {
	case errors.Is(err, llm.ErrDisabled):
		log.Info("llm disabled, topic generation unavailable")
	case err != nil:
		log.Warn("llm not configured, topic generation unavailable", zap.Error(err))
	default:
		log.Info("llm configured", zap.String("provider", cfg.LLM.Provider), zap.String("model", llm.ResolveModel(cfg.LLM)))
	}

	eng := engine.New(db, llmClient, engine.Options{
		Window:    cfg.Drift.Window,
		Lows:      cfg.Drift.Lows,
		IdleTTL:   cfg.Drift.IdleTTL,
		Retention: cfg.Database.Retention,
		Logger:    log,
	})
	eng.StartRetentionTimer()
	defer eng.Stop()

	srv := server.New(db, eng, VersionString(), log)
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Info("focusdrift serving", zap.String("addr", addr), zap.String("db", db.Path))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-done:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}
