package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mnemo/internal/logging"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and repair the job queue",
	}
	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueRecoverCommand(ctx))
	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show job counts per state and the failed jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, stores, err := ctx.openStores(logging.NewNop())
			if err != nil {
				return err
			}
			defer stores.Close()

			stats, err := stores.queue.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Pending", "Processing", "Failed"},
				[][]string{{
					strconv.Itoa(stats.Pending),
					strconv.Itoa(stats.Processing),
					strconv.Itoa(stats.Failed),
				}},
			))

			if stats.Failed == 0 {
				return nil
			}
			failed, err := stores.queue.ListFailed(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(failed))
			for _, job := range failed {
				rows = append(rows, []string{
					job.JobID,
					job.FailedAt.Format(time.RFC3339),
					job.Error,
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Job", "Failed At", "Error"}, rows))
			return nil
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Move all failed jobs back to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, stores, err := ctx.openStores(logging.NewNop())
			if err != nil {
				return err
			}
			defer stores.Close()

			count, err := stores.queue.RetryAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d failed job(s)\n", count)
			return nil
		},
	}
}

func newQueueRecoverCommand(ctx *commandContext) *cobra.Command {
	var timeoutSeconds int

	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Reclaim processing jobs abandoned by a crashed consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, stores, err := ctx.openStores(logging.NewNop())
			if err != nil {
				return err
			}
			defer stores.Close()

			timeout := time.Duration(timeoutSeconds) * time.Second
			if timeoutSeconds <= 0 {
				timeout = time.Duration(cfg.Cognitive.StaleTimeoutSeconds) * time.Second
			}
			count, err := stores.queue.RecoverStale(cmd.Context(), timeout)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recovered %d stale job(s)\n", count)
			return nil
		},
	}

	cmd.Flags().IntVar(&timeoutSeconds, "timeout", 0, "Lease timeout in seconds (default from config)")
	return cmd
}
