package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dgallion1/docintel/internal/config"
	"github.com/dgallion1/docintel/internal/mcptool"
	"github.com/dgallion1/docintel/internal/pipeline"
)

const (
	version    = "0.1.0"
	serverName = "docintel-mcp"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("%s version %s\n", serverName, version)
		os.Exit(0)
	}

	_ = godotenv.Load()
	cfg := config.Load()

	// stdout carries the protocol.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	analyzer, err := pipeline.NewAnalyzerFromConfig(cfg, log)
	if err != nil {
		log.Error("failed to load analysis settings", "error", err)
		os.Exit(1)
	}

	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version}, nil)
	mcptool.New(analyzer, cfg.MaxUploadBytes, log).Register(server)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("server ready", "name", serverName, "version", version)
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
