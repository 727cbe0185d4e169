package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mnemo/internal/cognitive"
)

func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	var event cognitive.Event

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Enqueue a chat event for deferred processing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if event.ActionSummary == "" && event.NewInfo == "" {
				return fmt.Errorf("at least one of --summary or --new-info is required")
			}

			svc, stores, err := ctx.openService()
			if err != nil {
				return err
			}
			defer stores.Close()

			jobID, err := svc.EnqueueEvent(cmd.Context(), event)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jobID == "" {
				fmt.Fprintln(out, "Cognitive subsystem is disabled; nothing enqueued")
				return nil
			}
			fmt.Fprintf(out, "Enqueued job %s\n", jobID)
			return nil
		},
	}

	cmd.Flags().StringVar(&event.RequestID, "request-id", "", "Producer request identifier (defaults to a generated id)")
	cmd.Flags().StringVar(&event.UserID, "user-id", "", "User the event belongs to")
	cmd.Flags().StringVar(&event.GroupID, "group-id", "", "Group the event belongs to")
	cmd.Flags().StringVar(&event.SenderID, "sender-id", "", "Sender of the originating message")
	cmd.Flags().StringVar(&event.RequestType, "type", "", "Request type (private, group, ...)")
	cmd.Flags().StringVar(&event.ActionSummary, "summary", "", "Summary of what happened")
	cmd.Flags().StringVar(&event.NewInfo, "new-info", "", "New information to fold into the entity profile")
	cmd.Flags().IntVar(&event.EndSeq, "end-seq", 0, "Last conversation sequence covered by the event")

	return cmd
}
