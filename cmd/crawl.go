package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/tubescout/internal/discovery"
)

// newCrawlCmd runs one discovery pass from the command line.
func newCrawlCmd() *cobra.Command {
	var (
		target         int
		maxResults     int64
		maxSubscribers int64
	)
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Discovers new channels once and exits",
		Long: `Walks the configured region and keyword grid, inserting channels below the
subscriber ceiling until the target count of new channels is reached or the
grid is exhausted. Prints the run summary as JSON.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			cfg := appInstance.GetConfig().YouTube
			params := discovery.Params{
				TargetChannels: firstPositive(target, cfg.TargetChannels),
				MaxResults:     firstPositive(maxResults, cfg.MaxResults),
				MaxSubscribers: firstPositive(maxSubscribers, cfg.MaxSubscribers),
			}
			res, err := appInstance.GetDiscovery().Crawl(cmd.Context(), params)
			if encErr := printJSON(cmd, res); encErr != nil {
				appInstance.GetLogger().Warn("print crawl result", zap.Error(encErr))
			}
			if err != nil {
				return fmt.Errorf("crawl: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&target, "target", 0, "new channels to find (default from config)")
	cmd.Flags().Int64Var(&maxResults, "max-results", 0, "search results per query, 1-50 (default from config)")
	cmd.Flags().Int64Var(&maxSubscribers, "max-subscribers", 0, "subscriber ceiling (default from config)")
	return cmd
}

func firstPositive[T int | int64](v, def T) T {
	if v > 0 {
		return v
	}
	return def
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
