package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"stacker.dev/stacker/internal/config"
	"stacker.dev/stacker/internal/gitexec"
	"stacker.dev/stacker/internal/stack"
	"stacker.dev/stacker/internal/stkerrors"
)

// newContinueCmd creates the continue command.
func newContinueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "continue",
		Short: "Continue a restack halted by a rebase conflict",
		Long: `Continue the most recent restack halted by a rebase conflict: resumes
the paused "git rebase", finishes moving the conflicted branch's ref, and
restacks whatever branches were still pending.`,
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
			if state == nil {
				return stkerrors.NewPreconditionsFailedError("no operation to continue", "")
			}
			if !rc.Adapter.RebaseInProgress(ctx) {
				return stkerrors.NewPreconditionsFailedError("no rebase in progress", "nothing to continue")
			}

			res, err := rc.Adapter.RebaseContinue(ctx)
			if err != nil {
				return err
			}
			if res == gitexec.RebaseConflict {
				rc.Splog.Error("still conflicted on %s; resolve the remaining conflicts and run 'stacker continue' again", state.ConflictedBranch)
				return stkerrors.NewRebaseConflictError(state.ConflictedBranch, "unresolved conflicts remain")
			}

			newTip, err := rc.Adapter.ReadRef(ctx, "HEAD")
			if err != nil {
				return fmt.Errorf("read rebased HEAD: %w", err)
			}
			if err := rc.Adapter.UpdateRef(ctx, "refs/heads/"+state.ConflictedBranch, newTip); err != nil {
				return fmt.Errorf("move %s to rebased tip: %w", state.ConflictedBranch, err)
			}
			if err := rc.Adapter.Checkout(ctx, state.ConflictedBranch); err != nil {
				return fmt.Errorf("checkout %s: %w", state.ConflictedBranch, err)
			}
			if state.ConflictedBranchOldTip != "" {
				if err := rc.Store.SetPrevRef(ctx, state.ConflictedBranch, state.ConflictedBranchOldTip); err != nil {
					return fmt.Errorf("record prev-ref for %s: %w", state.ConflictedBranch, err)
				}
			}
			rc.Splog.Info("finished rebasing %s", state.ConflictedBranch)

			if len(state.BranchesToRestack) > 0 {
				f, _, err := buildForest(ctx, rc)
				if err != nil {
					return err
				}
				restacker := stack.NewRestacker(rc.Adapter, rc.Store)
				results, err := restacker.Restack(ctx, f, state.BranchesToRestack)
				if err != nil {
					return handleRestackConflict(rc, f, state.BranchesToRestack, results, err)
				}
				for _, r := range results {
					logRestackResult(rc, r)
				}
			}

			if err := config.ClearContinuationState(rc.RepoRoot); err != nil {
				return fmt.Errorf("clear continuation state: %w", err)
			}
			return nil
		},
	}

	return cmd
}
