package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"prospector_backend/platform/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|status]",
		Short:     "Apply or inspect database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) > 0 {
				action = args[0]
			}

			ctx, stop, cfg, log, err := loadEnv()
			if err != nil {
				return err
			}
			defer stop()

			pool, err := db.NewPool(ctx, cfg)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()

			if action == "status" {
				return db.MigrationStatus(ctx, pool)
			}
			if err := db.RunMigrations(ctx, pool); err != nil {
				return err
			}
			log.Info("migrations applied")
			return nil
		},
	}
}
