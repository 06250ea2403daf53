package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/tubescout/internal/crawler"
)

func newRescoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rescore",
		Short: "Recomputes every channel's priority score",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			changed, err := appInstance.GetStore().RecomputePriorityScores(cmd.Context())
			if err != nil {
				return fmt.Errorf("rescore: %w", err)
			}
			if err := appInstance.GetStore().LogActivity(cmd.Context(), crawler.ActivityEntry{
				Action:  crawler.ActionRescore,
				Details: fmt.Sprintf("Rescored %d channels", changed),
			}); err != nil {
				return fmt.Errorf("log rescore: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "rescored %d channels\n", changed)
			return err
		},
	}
}

type migrator interface {
	Migrate(ctx context.Context) error
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Creates or upgrades the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			m, ok := appInstance.GetStore().(migrator)
			if !ok {
				return errors.New("the configured store has no schema to migrate")
			}
			if err := m.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "schema ready")
			return err
		},
	}
}

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <channel url, handle, or id>",
		Short: "Prints the canonical channel id for a reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			id, ok, err := appInstance.GetResolver().Resolve(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("resolve: %w", err)
			}
			if !ok {
				return fmt.Errorf("could not resolve %q to a channel", args[0])
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	}
}

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <channel url, handle, or id>",
		Short: "Scores a single channel and prints the report as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			report, ok, err := appInstance.GetAnalyzer().Analyze(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("analyze: %w", err)
			}
			if !ok {
				return fmt.Errorf("channel %q not found", args[0])
			}
			return printJSON(cmd, report)
		},
	}
}
