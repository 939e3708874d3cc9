package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"verity/internal/api"
)

func newResultCommand(ctx *commandContext) *cobra.Command {
	resultCmd := &cobra.Command{
		Use:   "result",
		Short: "Inspect verified analysis results",
	}

	resultCmd.AddCommand(newResultShowCommand(ctx))
	resultCmd.AddCommand(newResultForContentCommand(ctx))

	return resultCmd
}

func newResultShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <result-id>",
		Short: "Show one analysis result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			result, err := st.GetResult(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, api.FromResult(result))
		},
	}
}

func newResultForContentCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "for-content <content-ref>",
		Short: "List all results recorded for a content reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			results, err := st.ResultsByContentRef(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No results for %s\n", args[0])
				return nil
			}
			views := make([]api.AnalysisResult, 0, len(results))
			for _, result := range results {
				views = append(views, api.FromResult(result))
			}
			return writeJSON(cmd, views)
		},
	}
}
