package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"verity/internal/analysis"
	"verity/internal/api"
	"verity/internal/store"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and work the review queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatsCommand(ctx))
	queueCmd.AddCommand(newQueueClaimCommand(ctx))
	queueCmd.AddCommand(newQueueReleaseCommand(ctx))
	queueCmd.AddCommand(newQueueResolveCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var caseRef string
	var contentType string
	var priority string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List open review items, most urgent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.reviewManager()
			if err != nil {
				return err
			}

			filter := store.ReviewFilter{CaseRef: strings.TrimSpace(caseRef)}
			if contentType != "" {
				parsed, ok := analysis.ParseContentType(contentType)
				if !ok {
					return fmt.Errorf("unknown content type %q", contentType)
				}
				filter.ContentType = parsed
			}
			if priority != "" {
				parsed, err := parsePriority(priority)
				if err != nil {
					return err
				}
				filter.Priority = parsed
			}

			items, err := manager.ListPending(cmd.Context(), filter)
			if err != nil {
				return err
			}

			views := make([]api.ReviewItem, 0, len(items))
			for _, item := range items {
				views = append(views, api.FromReviewItem(item))
			}
			if asJSON {
				return writeJSON(cmd, views)
			}
			if len(views) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Review queue is empty")
				return nil
			}

			rows := make([]table.Row, 0, len(views))
			for _, view := range views {
				rows = append(rows, table.Row{
					view.ID, view.PriorityLabel, view.Status, view.ResultID, view.Reason, view.ClaimedBy, view.CreatedAt,
				})
			}
			renderTable(cmd, table.Row{"ID", "Priority", "Status", "Result", "Reason", "Claimed By", "Created"}, rows, 1)
			return nil
		},
	}

	cmd.Flags().StringVar(&caseRef, "case", "", "Filter by content reference prefix")
	cmd.Flags().StringVar(&contentType, "type", "", "Filter by content type")
	cmd.Flags().StringVar(&priority, "priority", "", "Filter by priority (high, medium, low)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newQueueStatsCommand(ctx *commandContext) *cobra.Command {
	var caseRef string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show review queue health",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.reviewManager()
			if err != nil {
				return err
			}
			stats, err := manager.Stats(cmd.Context(), strings.TrimSpace(caseRef))
			if err != nil {
				return err
			}
			view := api.FromReviewStats(stats)
			if asJSON {
				return writeJSON(cmd, view)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Pending:             %d\n", view.Pending)
			fmt.Fprintf(out, "Claimed:             %d\n", view.Claimed)
			fmt.Fprintf(out, "Resolved:            %d\n", view.Resolved)
			fmt.Fprintf(out, "Correction rate:     %s\n", percent(view.CorrectionRate))
			fmt.Fprintf(out, "False positive rate: %s\n", percent(view.FalsePositiveRate))
			fmt.Fprintf(out, "Avg review latency:  %s\n", stats.AvgReviewLatency)
			return nil
		},
	}

	cmd.Flags().StringVar(&caseRef, "case", "", "Scope stats to a content reference prefix")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of text")
	return cmd
}

func newQueueClaimCommand(ctx *commandContext) *cobra.Command {
	var reviewer string

	cmd := &cobra.Command{
		Use:   "claim <item-id>",
		Short: "Claim a review item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			manager, err := ctx.reviewManager()
			if err != nil {
				return err
			}
			item, err := manager.Claim(cmd.Context(), itemID, reviewer)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Claimed item %d for %s (lease %s)\n", item.ID, reviewer, manager.Lease())
			return nil
		},
	}

	cmd.Flags().StringVar(&reviewer, "reviewer", "", "Reviewer identifier")
	_ = cmd.MarkFlagRequired("reviewer")
	return cmd
}

func newQueueReleaseCommand(ctx *commandContext) *cobra.Command {
	var reviewer string

	cmd := &cobra.Command{
		Use:   "release <item-id>",
		Short: "Release a claimed review item back to the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			manager, err := ctx.reviewManager()
			if err != nil {
				return err
			}
			if _, err := manager.Release(cmd.Context(), itemID, reviewer); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Released item %d\n", itemID)
			return nil
		},
	}

	cmd.Flags().StringVar(&reviewer, "reviewer", "", "Reviewer identifier")
	_ = cmd.MarkFlagRequired("reviewer")
	return cmd
}

func newQueueResolveCommand(ctx *commandContext) *cobra.Command {
	var reviewer string
	var decision string
	var correctedValue string

	cmd := &cobra.Command{
		Use:   "resolve <item-id>",
		Short: "Record a decision on a claimed review item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			manager, err := ctx.reviewManager()
			if err != nil {
				return err
			}
			item, err := manager.Resolve(cmd.Context(), itemID, reviewer, store.Decision(decision), correctedValue)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Resolved item %d as %s\n", item.ID, item.Decision)
			return nil
		},
	}

	cmd.Flags().StringVar(&reviewer, "reviewer", "", "Reviewer identifier")
	cmd.Flags().StringVar(&decision, "decision", "", "Decision: approved, corrected, or rejected")
	cmd.Flags().StringVar(&correctedValue, "corrected-value", "", "Replacement value for corrected decisions")
	_ = cmd.MarkFlagRequired("reviewer")
	_ = cmd.MarkFlagRequired("decision")
	return cmd
}

func parseItemID(arg string) (int64, error) {
	itemID, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || itemID <= 0 {
		return 0, fmt.Errorf("invalid item id %q", arg)
	}
	return itemID, nil
}

func parsePriority(arg string) (analysis.Priority, error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "high", "1":
		return analysis.PriorityHigh, nil
	case "medium", "2":
		return analysis.PriorityMedium, nil
	case "low", "3":
		return analysis.PriorityLow, nil
	default:
		return 0, fmt.Errorf("invalid priority %q (use high, medium, or low)", arg)
	}
}
