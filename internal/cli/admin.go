package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fpsos/fpsbot/internal/config"
	"github.com/fpsos/fpsbot/internal/infra/db"
	"github.com/fpsos/fpsbot/internal/infra/log"
	"github.com/fpsos/fpsbot/internal/usecase"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// openStore loads config and opens the database for one-shot admin commands.
func openStore(cmd *cobra.Command) (*gorm.DB, func(), error) {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := log.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	conn, err := db.Open(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	closeFn := func() {
		if sqlDB, err := conn.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logger.Warn("failed to close database", zap.Error(err))
			}
		}
		_ = logger.Sync()
	}
	return conn, closeFn, nil
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, closeFn, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := db.Migrate(conn); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print business statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, closeFn, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			stats, err := usecase.NewStatsUsecase(
				db.NewUserRepository(conn),
				db.NewDiagnosticRepository(conn),
				db.NewBookingRepository(conn),
			).Collect(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Users:       %d\n", stats.TotalUsers)
			fmt.Fprintf(out, "Diagnostics: %d\n", stats.TotalDiagnostics)
			fmt.Fprintf(out, "Bookings:    %d (%d completed)\n", stats.TotalBookings, stats.CompletedBookings)
			fmt.Fprintf(out, "Revenue:     AED %s\n", stats.TotalRevenue.StringFixed(2))
			fmt.Fprintf(out, "Conversion:  %s%%\n", stats.ConversionRate.String())
			fmt.Fprintf(out, "Top tier:    %s\n", stats.PopularTier)
			return nil
		},
	}
}

func newTagsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage support tags",
	}

	var author string
	importCmd := &cobra.Command{
		Use:   "import <file.yaml|->",
		Short: "Upsert tags from a YAML list of {name, content}",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			conn, closeFn, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := usecase.NewTagUsecase(db.NewTagRepository(conn)).Import(cmd.Context(), r, author)
			if err != nil {
				if n > 0 {
					return errors.Join(fmt.Errorf("imported %d tags before failing", n), err)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d tags\n", n)
			return nil
		},
	}
	importCmd.Flags().StringVar(&author, "author", "cli", "Recorded as the tag creator")

	cmd.AddCommand(importCmd)
	return cmd
}
