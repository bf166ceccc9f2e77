package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"prospector_backend/internal/bootstrap"
)

const manualTrigger = "manual"

func newPitchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pitch <lead-id>",
		Short: "Pitch a single lead now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			leadID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid lead id %q: %w", args[0], err)
			}

			return withContainer(func(ctx context.Context, c *bootstrap.Container) error {
				res, err := c.Leads.Orchestrator().PitchLead(ctx, leadID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "lead %s: %s (status %s, %d follow-ups scheduled)\n",
					leadID, res.Outcome, res.Lead.Status, res.FollowupsScheduled)
				return nil
			})
		},
	}
}

func newPitchBatchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "pitch-batch",
		Short: "Schedule pitches for the oldest new leads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(func(ctx context.Context, c *bootstrap.Container) error {
				if limit <= 0 {
					limit = c.Settings.Current().PitchBatchSize
				}
				n, err := c.Leads.Orchestrator().SchedulePitchBatch(ctx, limit, manualTrigger)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "scheduled %d pitches\n", n)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum leads to schedule (defaults to the pitch batch size setting)")
	return cmd
}
