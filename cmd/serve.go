package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quarry-ai/quarry/api"
	"github.com/quarry-ai/quarry/db"
	"github.com/quarry-ai/quarry/internal/observability"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(cfg)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting quarry server", "version", AppVersion)

	shutdownTracing, err := observability.Setup(ctx, cfg.Tracing, logger)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("trace flush failed", "error", err)
		}
	}()

	// The pgvector backend owns its rows but not its schema.
	if cfg.VectorStore.Type == "pgvector" {
		if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
	}

	proc, err := newProcessor(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := proc.Close(); err != nil {
			logger.Warn("closing pipeline", "error", err)
		}
	}()

	addr := flagAddr
	if addr == "" {
		addr = cfg.Server.Addr()
	}

	srv := api.NewServer(proc, api.Config{
		CORSOrigins: cfg.Server.CORSOrigins,
		TrustProxy:  cfg.Server.TrustProxy,
		RateBurst:   cfg.Server.RateBurst,
	}, logger)
	return srv.Run(ctx, addr)
}
