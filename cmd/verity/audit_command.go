package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"verity/internal/api"
	"verity/internal/audit"
)

func newAuditCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "audit <entity-type> <entity-id>",
		Short: "Show the audit trail for a result, review item, or analyzer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityType := args[0]
			switch entityType {
			case audit.EntityAnalysisResult, audit.EntityReviewItem, audit.EntityAnalyzer:
			default:
				return fmt.Errorf("unknown entity type %q (use %s, %s, or %s)",
					entityType, audit.EntityAnalysisResult, audit.EntityReviewItem, audit.EntityAnalyzer)
			}

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			events, err := st.AuditEventsForEntity(cmd.Context(), entityType, args[1])
			if err != nil {
				return err
			}

			views := make([]api.AuditEvent, 0, len(events))
			for _, event := range events {
				views = append(views, api.FromAuditRow(event))
			}
			if asJSON {
				return writeJSON(cmd, views)
			}
			if len(views) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No audit events for %s %s\n", entityType, args[1])
				return nil
			}

			rows := make([]table.Row, 0, len(views))
			for _, view := range views {
				rows = append(rows, table.Row{view.CreatedAt, view.Action, view.ActorID, view.Details})
			}
			renderTable(cmd, table.Row{"Time", "Action", "Actor", "Details"}, rows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}
