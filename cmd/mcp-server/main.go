// cmd/mcp-server/main.go - Standalone HTTP MCP server for montecarlo
//
// Exposes the integration tools as an HTTP endpoint for AI agent frameworks.
// It is the same server as `mcint serve`, without the rest of the CLI.
//
// Usage:
//
//	go run ./cmd/mcp-server --listen :8080 --config mcint.yaml
//
// Tool call endpoint: POST /tool
// Schema endpoint:    GET  /schema
// Health endpoint:    GET  /health
// Metrics endpoint:   GET  /metrics
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/njchilds90/montecarlo/internal/config"
	"github.com/njchilds90/montecarlo/internal/history"
	"github.com/njchilds90/montecarlo/internal/server"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("mcp-server", pflag.ContinueOnError)
	configFile := fs.String("config", "", "path to a config file")
	fs.String("listen", ":8080", "address to listen on")
	fs.String("log-level", "info", "log level")
	fs.Bool("history", false, "journal estimates to the history store")
	if err := fs.Parse(args); err != nil {
		return err
	}

	v := config.New()
	if err := config.BindFlags(v, fs, map[string]string{
		"listen":    "server.listen_addr",
		"log-level": "log.level",
		"history":   "history.enabled",
	}); err != nil {
		return err
	}
	cfg, err := config.Load(v, *configFile)
	if err != nil {
		return err
	}
	logger, err := cfg.Log.Logger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(history.Options{
			Path:             cfg.History.Path,
			CompressionLevel: cfg.History.CompressionLevel,
			Logger:           logger,
		})
		if err != nil {
			return err
		}
		defer store.Close()
	}

	srv := server.New(cfg.Server, store, logger)
	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errc:
		if err != nil {
			logger.Error("server error", zap.Error(err))
		}
		return err
	case <-sigChan:
	}

	logger.Info("shutdown signal received, stopping server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		return err
	}
	return <-errc
}
