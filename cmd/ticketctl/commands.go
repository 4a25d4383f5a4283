package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/BradenHooton/ticketdesk/internal/config"
	"github.com/BradenHooton/ticketdesk/internal/database"
	"github.com/BradenHooton/ticketdesk/internal/repositories"
	"github.com/spf13/cobra"
)

// expiredTokenStore removes reset tokens whose expiry is not after now
type expiredTokenStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	var timeout time.Duration

	rootCmd := &cobra.Command{
		Use:          "ticketctl",
		Short:        "Operator commands for the complaint tracker",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "maximum time a command may run")

	// --- Migrations ---
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	migrateUpCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := database.Open(cfg.Database.DSN())
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if err := database.Migrate(ctx, db, logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	migrateStatusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show which migrations have been applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := database.Open(cfg.Database.DSN())
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			statuses, err := database.Status(ctx, db)
			if err != nil {
				return err
			}
			return printMigrationStatus(cmd.OutOrStdout(), statuses)
		},
	}

	// --- Reset tokens ---
	tokensCmd := &cobra.Command{
		Use:   "tokens",
		Short: "Maintain password reset tokens",
	}
	cleanExpiredCmd := &cobra.Command{
		Use:   "clean-expired",
		Short: "Delete every expired password reset token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			db, err := database.NewConnection(ctx, &cfg.Database, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			return cleanExpired(ctx, cmd.OutOrStdout(), repositories.NewResetTokenRepository(db), time.Now())
		},
	}

	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd)
	tokensCmd.AddCommand(cleanExpiredCmd)
	rootCmd.AddCommand(migrateCmd, tokensCmd)
	return rootCmd
}

func cleanExpired(ctx context.Context, out io.Writer, store expiredTokenStore, now time.Time) error {
	n, err := store.DeleteExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to delete expired reset tokens: %w", err)
	}
	fmt.Fprintf(out, "Deleted %d expired password reset token(s)\n", n)
	return nil
}

func printMigrationStatus(out io.Writer, statuses []database.MigrationStatus) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTATE\tNAME")
	for _, s := range statuses {
		state := "pending"
		if s.Applied {
			state = "applied"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", s.Version, state, s.Name)
	}
	return tw.Flush()
}
