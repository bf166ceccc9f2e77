package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"prospector_backend/internal/bootstrap"
)

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run a discovery scan over the configured targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(func(ctx context.Context, c *bootstrap.Container) error {
				targets := c.Settings.Current().ScanTargets
				if len(targets) == 0 {
					return fmt.Errorf("no scan targets configured")
				}
				res, err := c.Scan.Run(ctx, targets, manualTrigger)
				fmt.Fprintf(cmd.OutOrStdout(), "found %d, inserted %d, updated %d, skipped %d\n",
					res.Found, res.Inserted, res.Updated, res.Skipped)
				return err
			})
		},
	}
}

func newSelfTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "selftest",
		Short: "Check every outreach channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(func(ctx context.Context, c *bootstrap.Container) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "CHANNEL\tOK\tLATENCY\tERROR")
				failed := 0
				for _, r := range c.Dispatcher.SelfTestAll(ctx) {
					if !r.OK {
						failed++
					}
					fmt.Fprintf(w, "%s\t%t\t%dms\t%s\n", r.Channel, r.OK, r.LatencyMs, r.Error)
				}
				if err := w.Flush(); err != nil {
					return err
				}
				if failed > 0 {
					return fmt.Errorf("%d channel(s) failed", failed)
				}
				return nil
			})
		},
	}
}
