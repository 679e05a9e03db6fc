package cli

import (
	"github.com/spf13/cobra"

	"stacker.dev/stacker/internal/submit"
)

// newSyncCmd creates the sync command.
func newSyncCmd() *cobra.Command {
	var (
		branch string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Refresh pull request info for the current stack and prune merged branches",
		Long: `Refresh pull request state for every tracked branch in the current
branch's fullstack from the review host. Branches whose pull request has
been merged or closed are untracked, after confirming with the user unless
--force is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := openContext()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if err := rc.EnsureHost(ctx); err != nil {
				return err
			}

			target, err := resolveBranch(ctx, rc, branch)
			if err != nil {
				return err
			}

			f, order, err := buildForest(ctx, rc)
			if err != nil {
				return err
			}
			scope := f.Fullstack(target, order)

			pipeline := submit.NewPipeline(rc.Adapter, rc.Store, rc.Host, rc.Prompter)
			if err := pipeline.Sync(ctx, scope); err != nil {
				return err
			}

			for _, branchName := range scope {
				info, err := rc.Store.GetPRInfo(ctx, branchName)
				if err != nil {
					return err
				}
				if info == nil || info.State == nil {
					continue
				}
				if *info.State != "MERGED" && *info.State != "CLOSED" {
					continue
				}

				proceed := force
				if !proceed {
					proceed, err = rc.Prompter.Confirm(
						branchName+"'s pull request is "+*info.State+". Untrack it?", true)
					if err != nil {
						return err
					}
				}
				if !proceed {
					continue
				}
				if err := rc.Store.Untrack(ctx, branchName); err != nil {
					return err
				}
				rc.Splog.Info("untracked %s (%s)", branchName, *info.State)
			}

			rc.Splog.Info("synced pull request info for %d branch(es)", len(scope))
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "which branch's stack to sync; defaults to the current branch")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "untrack merged/closed branches without prompting")

	return cmd
}
