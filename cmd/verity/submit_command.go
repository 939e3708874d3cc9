package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"verity/internal/ingest"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <file.json>...",
		Short: "Queue analyzer submission files for the daemon",
		Long: "Validates each JSON submission file and drops it into the daemon's " +
			"incoming spool directory. The running verityd picks it up on its next sweep.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, arg := range args {
				data, err := os.ReadFile(arg)
				if err != nil {
					return fmt.Errorf("read %s: %w", arg, err)
				}
				if _, err := ingest.ParseSubmission(data); err != nil {
					return fmt.Errorf("%s: %w", arg, err)
				}

				target := filepath.Join(cfg.IncomingDir(), uuid.NewString()+".json")
				if err := os.WriteFile(target, data, 0o644); err != nil {
					return fmt.Errorf("spool %s: %w", arg, err)
				}
				fmt.Fprintf(out, "Queued %s as %s\n", arg, filepath.Base(target))
			}
			return nil
		},
	}
}
