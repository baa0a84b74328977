package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/njchilds90/montecarlo/internal/server"
)

var serveExample = `# serve the tool endpoints on :8080
%[1]s serve

# journal every estimate and cap request sizes
%[1]s serve --listen 127.0.0.1:9000 --history --max-samples 200000
`

const shutdownTimeout = 30 * time.Second

func NewCmdServe(parent string, g *GlobalFlags, out, errout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serves the integration tools over HTTP",
		Long:    "Serves POST /tool, GET /schema, /health, /metrics and the run history at /runs until interrupted.",
		Example: fmt.Sprintf(serveExample, parent),
		Args:    cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			cfg, logger, err := g.Load(c.Flags(), map[string]string{
				"listen":      "server.listen_addr",
				"max-samples": "server.max_samples",
				"history":     "history.enabled",
			})
			if err != nil {
				return err
			}
			defer logger.Sync()

			store, err := openHistory(cfg, logger)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
				logger.Info("run history enabled", zap.String("path", cfg.History.Path))
			}

			srv := server.New(cfg.Server, store, logger)
			errc := make(chan error, 1)
			go func() { errc <- srv.Start() }()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			select {
			case err := <-errc:
				return err
			case sig := <-sigChan:
				logger.Info("shutdown signal received", zap.String("signal", sig.String()))
			}

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Stop(ctx); err != nil {
				logger.Error("server shutdown error", zap.Error(err))
				return err
			}
			logger.Info("server stopped")
			return <-errc
		},
	}

	cmd.Flags().String("listen", ":8080", "address to listen on.")
	cmd.Flags().Int("max-samples", 1000000, "largest sample count a tool call may request.")
	cmd.Flags().Bool("history", false, "journal estimates to the history store.")
	return cmd
}
