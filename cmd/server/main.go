package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dgallion1/docintel/internal/api"
	"github.com/dgallion1/docintel/internal/config"
	"github.com/dgallion1/docintel/internal/pathstore"
	"github.com/dgallion1/docintel/internal/pipeline"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	analyzer, err := pipeline.NewAnalyzerFromConfig(cfg, log)
	if err != nil {
		log.Error("failed to load analysis settings", "error", err)
		os.Exit(1)
	}

	// The result sink is optional.
	var ps *pathstore.Client
	if cfg.PathstoreURL != "" {
		ps = pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
	}

	orch := pipeline.NewOrchestrator(cfg, analyzer, ps, log)
	orch.Start(ctx)

	srv := api.NewServer(orch, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		// Stop accepting uploads before the queue is closed.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()

		if ps != nil {
			ps.Close()
		}
	}()

	log.Info("starting docintel", "port", cfg.Port, "result_store", ps != nil)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
