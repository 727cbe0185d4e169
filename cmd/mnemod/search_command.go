package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mnemo/internal/cognitive"
	"mnemo/internal/vectorstore"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Search stored memories",
	}
	searchCmd.AddCommand(newSearchEventsCommand(ctx))
	searchCmd.AddCommand(newSearchProfilesCommand(ctx))
	searchCmd.AddCommand(newContextCommand(ctx))
	return searchCmd
}

func newSearchEventsCommand(ctx *commandContext) *cobra.Command {
	var opts cognitive.SearchOptions

	cmd := &cobra.Command{
		Use:   "events <query>",
		Short: "Search recorded events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, stores, err := ctx.openService()
			if err != nil {
				return err
			}
			defer stores.Close()

			results, err := svc.SearchEvents(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			printResults(cmd, results, "timestamp_local", "Timestamp")
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.TopK, "top-k", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVar(&opts.GroupID, "group-id", "", "Restrict to a group")
	cmd.Flags().StringVar(&opts.UserID, "user-id", "", "Restrict to a user")
	cmd.Flags().StringVar(&opts.SenderID, "sender-id", "", "Restrict to a sender")
	return cmd
}

func newSearchProfilesCommand(ctx *commandContext) *cobra.Command {
	var opts cognitive.SearchOptions

	cmd := &cobra.Command{
		Use:   "profiles <query>",
		Short: "Search entity profiles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, stores, err := ctx.openService()
			if err != nil {
				return err
			}
			defer stores.Close()

			results, err := svc.SearchProfiles(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			printResults(cmd, results, "entity_type", "Entity")
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.TopK, "top-k", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVar(&opts.EntityType, "entity-type", "", "Restrict to an entity type (user or group)")
	return cmd
}

func newContextCommand(ctx *commandContext) *cobra.Command {
	var groupID, userID, senderID string

	cmd := &cobra.Command{
		Use:   "context <query>",
		Short: "Assemble the memory context block for a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, stores, err := ctx.openService()
			if err != nil {
				return err
			}
			defer stores.Close()

			block, err := svc.BuildContext(cmd.Context(), args[0], groupID, userID, senderID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if block == "" {
				fmt.Fprintln(out, "No stored memories match")
				return nil
			}
			fmt.Fprintln(out, block)
			return nil
		},
	}

	cmd.Flags().StringVar(&groupID, "group-id", "", "Group to build context for")
	cmd.Flags().StringVar(&userID, "user-id", "", "User to build context for")
	cmd.Flags().StringVar(&senderID, "sender-id", "", "Sender to build context for")
	return cmd
}

func printResults(cmd *cobra.Command, results []vectorstore.Result, metaKey, metaHeader string) {
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No matches")
		return
	}
	rows := make([][]string, 0, len(results))
	for _, result := range results {
		rows = append(rows, []string{
			result.ID,
			fmt.Sprintf("%.3f", result.Similarity),
			result.Metadata[metaKey],
			truncate(result.Document, 80),
		})
	}
	fmt.Fprintln(out, renderTable([]string{"ID", "Score", metaHeader, "Document"}, rows))
}

func truncate(text string, limit int) string {
	text = strings.ReplaceAll(text, "\n", " ")
	if len(text) <= limit {
		return text
	}
	return text[:limit-3] + "..."
}
