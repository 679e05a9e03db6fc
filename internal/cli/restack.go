package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"stacker.dev/stacker/internal/config"
	"stacker.dev/stacker/internal/runtime"
	"stacker.dev/stacker/internal/stack"
	"stacker.dev/stacker/internal/stkerrors"
)

// newRestackCmd creates the restack command.
func newRestackCmd() *cobra.Command {
	var (
		branch    string
		downstack bool
		only      bool
		upstack   bool
		onto      string
	)

	cmd := &cobra.Command{
		Use:   "restack",
		Short: "Rebase each branch in scope onto its recorded parent's current tip",
		Long: `Ensure each branch in scope has its recorded parent in its Git commit
history, rebasing as needed. If a rebase conflicts, the traversal stops and
the remaining branches are recorded for "stacker continue" once the conflict
is resolved.

With --onto, reparent the target branch onto a new parent instead, then
restack its upstack onto it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := openContext()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			target, err := resolveBranch(ctx, rc, branch)
			if err != nil {
				return err
			}

			f, order, err := buildForest(ctx, rc)
			if err != nil {
				return err
			}

			dirty, err := rc.Adapter.UncommittedChanges(ctx)
			if err != nil {
				return err
			}
			if dirty {
				return stkerrors.NewPreconditionsFailedError("working tree has uncommitted changes", "commit or stash them first")
			}
			if rc.Adapter.RebaseInProgress(ctx) {
				return stkerrors.NewPreconditionsFailedError("a rebase is already in progress", "run 'stacker continue' or 'stacker abort' first")
			}

			restacker := stack.NewRestacker(rc.Adapter, rc.Store)

			if onto != "" {
				if err := stack.ValidateAll(ctx, rc.Adapter, f, f.Fullstack(target, order)); err != nil {
					return err
				}
				fullScope := f.Upstack(target)
				results, err := restacker.RestackOnto(ctx, f, target, onto)
				if err != nil {
					return handleRestackConflict(rc, f, fullScope, results, err)
				}
				for _, r := range results {
					logRestackResult(rc, r)
				}
				return nil
			}

			scope, err := scopeOrder(f, target, downstack, only, upstack, order)
			if err != nil {
				return err
			}

			results, err := restacker.Restack(ctx, f, scope)
			if err != nil {
				return handleRestackConflict(rc, f, scope, results, err)
			}

			for _, r := range results {
				logRestackResult(rc, r)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "which branch to restack from; defaults to the current branch")
	cmd.Flags().BoolVar(&downstack, "downstack", false, "only restack this branch and its ancestors")
	cmd.Flags().BoolVar(&only, "only", false, "only restack this branch")
	cmd.Flags().BoolVar(&upstack, "upstack", false, "only restack this branch and its descendants")
	cmd.Flags().StringVar(&onto, "onto", "", "reparent the target branch onto this branch, then restack its upstack")

	return cmd
}

// handleRestackConflict persists a continuation state when err is a
// *stkerrors.RebaseConflictError, naming the branches of scope not yet
// covered by results as the work "stacker continue" must resume.
func handleRestackConflict(rc *runtime.Context, f *stack.Forest, scope []string, results []stack.RestackBranchResult, err error) error {
	var conflictErr *stkerrors.RebaseConflictError
	if errors.As(err, &conflictErr) {
		remaining := scope[len(results):]
		oldTip := ""
		if b, ok := f.Branches[conflictErr.BranchName]; ok {
			oldTip = b.Tip
		}
		if saveErr := config.SaveContinuationState(rc.RepoRoot, &config.ContinuationState{
			BranchesToRestack:      remaining,
			ConflictedBranch:       conflictErr.BranchName,
			ConflictedBranchOldTip: oldTip,
		}); saveErr != nil {
			return fmt.Errorf("save continuation state: %w", saveErr)
		}
		rc.Splog.Error("rebase conflict on %s; resolve it, then run 'stacker continue'", conflictErr.BranchName)
	}
	return err
}

func logRestackResult(rc *runtime.Context, r stack.RestackBranchResult) {
	switch r.Result {
	case stack.RestackDone:
		rc.Splog.Info("restacked %s onto %s", r.Branch, r.RebasedBranchBase)
	case stack.RestackUnneeded:
		rc.Splog.Debug("%s is already based on %s", r.Branch, r.RebasedBranchBase)
	}
}
