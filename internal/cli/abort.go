package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"stacker.dev/stacker/internal/config"
	"stacker.dev/stacker/internal/stkerrors"
)

// newAbortCmd creates the abort command.
func newAbortCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "abort",
		Short: "Abort a restack halted by a rebase conflict",
		Long: `Abort the in-progress rebase behind a halted restack and discard the
pending continuation state. Branches already restacked before the conflict
stay restacked; only the interrupted rebase is rolled back.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := openContext()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			state, err := config.LoadContinuationState(rc.RepoRoot)
			if err != nil {
				return err
			}
			if state == nil && !rc.Adapter.RebaseInProgress(ctx) {
				return stkerrors.NewPreconditionsFailedError("no operation to abort", "")
			}

			if rc.Adapter.RebaseInProgress(ctx) {
				if err := rc.Adapter.RebaseAbort(ctx); err != nil {
					return fmt.Errorf("abort rebase: %w", err)
				}
			}
			if state != nil {
				if err := config.ClearContinuationState(rc.RepoRoot); err != nil {
					return fmt.Errorf("clear continuation state: %w", err)
				}
			}

			rc.Splog.Info("aborted")
			return nil
		},
	}

	return cmd
}
