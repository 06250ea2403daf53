// Package cmd defines and implements the CLI commands for the tubescout executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/tubescout/internal/analyzer"
	"github.com/JakeFAU/tubescout/internal/app"
	"github.com/JakeFAU/tubescout/internal/auth"
	"github.com/JakeFAU/tubescout/internal/config"
	"github.com/JakeFAU/tubescout/internal/crawler"
	"github.com/JakeFAU/tubescout/internal/discovery"
	"github.com/JakeFAU/tubescout/internal/export"
	"github.com/JakeFAU/tubescout/internal/resolver"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands will use.
// This allows us to inject a test app.
type App interface {
	Close()
	GetConfig() config.Config
	GetLogger() *zap.Logger
	GetStore() crawler.Store
	GetResolver() *resolver.Resolver
	GetDiscovery() *discovery.Service
	GetAnalyzer() *analyzer.Analyzer
	GetArchiver() *export.Archiver
	GetSessions() *auth.Sessions
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(ctx context.Context, cfg config.Config) (App, error) {
	return app.NewApp(ctx, cfg)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "tubescout",
		Short: "Finds small YouTube channels and tracks outreach to them.",
		Long: `tubescout searches YouTube for channels under a subscriber ceiling,
stores the ones it has not seen before with a priority score, and serves a
dashboard for tracking who has been emailed and who replied.`,
		SilenceUsage: true,

		// Build the application before any subcommand runs.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			appInstance, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); TUBESCOUT_* variables override it")

	cmd.AddCommand(
		newServeCmd(),
		newCrawlCmd(),
		newRescoreCmd(),
		newMigrateCmd(),
		newResolveCmd(),
		newAnalyzeCmd(),
	)
	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
