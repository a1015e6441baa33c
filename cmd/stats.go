package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge base statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(cfg)

	ctx := cmd.Context()
	proc, err := newProcessor(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer proc.Close()

	stats := proc.Stats(ctx)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Status:          %s\n", stats.Status)
	if stats.TotalDocuments >= 0 {
		fmt.Fprintf(out, "Documents:       %d\n", stats.TotalDocuments)
	} else {
		fmt.Fprintf(out, "Documents:       unknown\n")
	}
	fmt.Fprintf(out, "Vector store:    %s\n", stats.VectorstoreType)
	fmt.Fprintf(out, "Embedding model: %s\n", stats.EmbeddingModel)
	fmt.Fprintf(out, "Retriever:       %s\n", stats.RetrieverType)
	return nil
}
