package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	flagSearchType string
	flagLimit      int
	flagNoMetadata bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Query the knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&flagSearchType, "type", "", "filter results by resource type")
	searchCmd.Flags().IntVar(&flagLimit, "limit", 5, "maximum number of results")
	searchCmd.Flags().BoolVar(&flagNoMetadata, "no-metadata", false, "omit per-result metadata")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
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

	query := strings.Join(args, " ")
	results, err := proc.Search(ctx, query, flagSearchType, flagLimit, !flagNoMetadata)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No results.")
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(out, "%d. (%.3f) %s\n", i+1, r.Score, firstLine(r.Content))
		if r.Metadata != nil {
			fmt.Fprintf(out, "   source: %s", r.Metadata.SourceURL)
			if r.Metadata.ResourceType != "" {
				fmt.Fprintf(out, "  type: %s", r.Metadata.ResourceType)
			}
			if len(r.Metadata.Tags) > 0 {
				fmt.Fprintf(out, "  tags: %s", strings.Join(r.Metadata.Tags, ","))
			}
			fmt.Fprintln(out)
		}
	}
	return nil
}

// firstLine truncates content to its first line, capped at 160 runes.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	runes := []rune(s)
	if len(runes) > 160 {
		return string(runes[:160]) + "…"
	}
	return s
}
