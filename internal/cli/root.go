// Package cli implements prospectctl, the operator command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"prospector_backend/internal/bootstrap"
	"prospector_backend/platform/config"
	"prospector_backend/platform/logger"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "prospectctl",
		Short:         "Operate the prospecting pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	root.AddCommand(
		newMigrateCmd(),
		newPitchCmd(),
		newPitchBatchCmd(),
		newScanCmd(),
		newSelfTestCmd(),
		newSettingsCmd(),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadEnv() (context.Context, context.CancelFunc, *config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx, stop, cfg, logger.New(cfg.Env), nil
}

// withContainer builds the full application graph for the duration of fn.
func withContainer(fn func(ctx context.Context, c *bootstrap.Container) error) error {
	ctx, stop, cfg, log, err := loadEnv()
	if err != nil {
		return err
	}
	defer stop()

	c, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer c.Close()

	return fn(ctx, c)
}
