package main

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"verity/internal/api"
)

func newCalibrationCommand(ctx *commandContext) *cobra.Command {
	calibrationCmd := &cobra.Command{
		Use:   "calibration",
		Short: "Inspect analyzer calibration state",
	}

	calibrationCmd.AddCommand(newCalibrationReportCommand(ctx))
	calibrationCmd.AddCommand(newCalibrationHistoryCommand(ctx))

	return calibrationCmd
}

func newCalibrationReportCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the latest calibration run per analyzer",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			latest, err := st.LatestCalibrationRuns(cmd.Context())
			if err != nil {
				return err
			}

			analyzerIDs := make([]string, 0, len(latest))
			for id := range latest {
				analyzerIDs = append(analyzerIDs, id)
			}
			sort.Strings(analyzerIDs)

			views := make([]api.CalibrationRun, 0, len(analyzerIDs))
			for _, id := range analyzerIDs {
				views = append(views, api.FromCalibrationRun(latest[id]))
			}
			if asJSON {
				return writeJSON(cmd, views)
			}
			if len(views) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No calibration runs recorded")
				return nil
			}

			rows := make([]table.Row, 0, len(views))
			for _, view := range views {
				f1 := "-"
				if view.F1Score != nil {
					f1 = fmt.Sprintf("%.3f", *view.F1Score)
				}
				rows = append(rows, table.Row{
					view.AnalyzerID,
					view.Status,
					fmt.Sprintf("%.3f", view.Accuracy),
					f1,
					fmt.Sprintf("%.2f", view.Multiplier),
					view.SampleCount,
					view.RanAt,
				})
			}
			renderTable(cmd, table.Row{"Analyzer", "Status", "Accuracy", "F1", "Multiplier", "Samples", "Ran At"}, rows, 3, 4, 5, 6)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newCalibrationHistoryCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history <analyzer-id>",
		Short: "Show all calibration runs for one analyzer, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			runs, err := st.CalibrationHistory(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			views := make([]api.CalibrationRun, 0, len(runs))
			for _, run := range runs {
				views = append(views, api.FromCalibrationRun(run))
			}
			if asJSON {
				return writeJSON(cmd, views)
			}
			if len(views) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No calibration runs for %s\n", args[0])
				return nil
			}

			rows := make([]table.Row, 0, len(views))
			for _, view := range views {
				rows = append(rows, table.Row{
					view.ID,
					view.Status,
					fmt.Sprintf("%.3f", view.Accuracy),
					fmt.Sprintf("%.2f", view.Multiplier),
					view.SampleCount,
					view.RanAt,
				})
			}
			renderTable(cmd, table.Row{"Run", "Status", "Accuracy", "Multiplier", "Samples", "Ran At"}, rows, 1, 3, 4, 5)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}
