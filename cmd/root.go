// Package cmd implements the quarry command line interface.
//
// Commands:
//   - ingest: add resources to the knowledge base
//   - search: query the knowledge base
//   - stats: show knowledge base statistics
//   - clear: delete the knowledge base
//   - serve: run the HTTP API server
//   - version: show version information
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quarry-ai/quarry/internal/config"
	"github.com/quarry-ai/quarry/internal/log"
	"github.com/quarry-ai/quarry/internal/rag"
)

var (
	flagConfig   string
	flagLogLevel string
	flagJSONLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "quarry",
	Short: "quarry - a retrieval-augmented knowledge base for your docs",
	Long: `quarry ingests documentation from files, websites, Confluence, and Jira,
indexes it in a local or PostgreSQL vector store, and serves similarity
search over the result, on the command line or over HTTP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.quarry/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&flagJSONLogs, "json-logs", false, "emit logs as JSON")
}

// loadConfig loads configuration honoring the --config flag.
func loadConfig() (*config.Config, error) {
	if flagConfig != "" {
		return config.LoadFile(flagConfig)
	}
	return config.Load()
}

// newLogger builds the CLI logger. Logs go to stderr; stdout carries command
// output.
func newLogger(cfg *config.Config) log.Logger {
	level := cfg.Logging.Level
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	return log.NewWithWriter(os.Stderr, log.Config{
		Level: log.ParseLevel(level),
		JSON:  flagJSONLogs || cfg.Logging.JSON,
	})
}

// newProcessor assembles the pipeline from configuration. The caller owns
// the returned processor and must Close it.
func newProcessor(ctx context.Context, cfg *config.Config, logger log.Logger) (*rag.Processor, error) {
	proc, err := rag.New(ctx, cfg.RAG(), logger)
	if err != nil {
		if rag.IsConfigurationError(err) {
			fmt.Fprintln(os.Stderr, err.Error())
			return nil, fmt.Errorf("configuration error")
		}
		return nil, err
	}
	return proc, nil
}
