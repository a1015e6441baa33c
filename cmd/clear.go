package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var flagYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the knowledge base",
	Long:  `Delete all indexed documents and persisted storage. Irreversible.`,
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

func init() {
	clearCmd.Flags().BoolVar(&flagYes, "yes", false, "confirm deletion")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	if !flagYes {
		return fmt.Errorf("refusing to delete the knowledge base without --yes")
	}

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

	if err := proc.ClearKnowledgeBase(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Knowledge base cleared.")
	return nil
}
