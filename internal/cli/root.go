package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fpsos/fpsbot/internal/app"
	"github.com/fpsos/fpsbot/internal/config"
	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "fpsbot",
		Short:         "FPSOS community bot",
		Long:          `fpsbot runs the FPSOS Discord assistant, its booking webhook and the staff control plane.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runBot,
	}

	root.AddCommand(
		newRunCommand(),
		newMigrateCommand(),
		newStatsCommand(),
		newTagsCommand(),
	)
	return root
}

// Execute runs the root command with a context cancelled on SIGINT or SIGTERM.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fpsbot:", err)
		return 1
	}
	return 0
}

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the Discord bot and the HTTP server",
		Args:  cobra.NoArgs,
		RunE:  runBot,
	}
}

func runBot(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer application.Shutdown()

	return application.Run(ctx)
}
