package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newUntrackCmd creates the untrack command.
func newUntrackCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "untrack [branch]",
		Short: "Stop tracking a branch",
		Long: `Stop tracking the current (or given) branch. If it has tracked
children, they are reparented onto the untracked branch's own parent rather
than left dangling.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := openContext()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			branchArg := ""
			if len(args) > 0 {
				branchArg = args[0]
			}
			branch, err := resolveBranch(ctx, rc, branchArg)
			if err != nil {
				return err
			}

			f, _, err := buildForest(ctx, rc)
			if err != nil {
				return err
			}
			b, ok := f.Branches[branch]
			if !ok {
				return fmt.Errorf("%s is not tracked", branch)
			}

			children := f.Children(branch)
			if len(children) > 0 && !force {
				proceed, err := rc.Prompter.Confirm(
					fmt.Sprintf("%s has %d tracked child branch(es), which will be reparented onto %s. Continue?", branch, len(children), b.ParentName),
					false)
				if err != nil {
					return err
				}
				if !proceed {
					rc.Splog.Info("untrack cancelled")
					return nil
				}
			}

			for _, child := range children {
				if err := rc.Store.SetParent(ctx, child, b.ParentName); err != nil {
					return fmt.Errorf("reparent %s onto %s: %w", child, b.ParentName, err)
				}
				rc.Splog.Info("reparented %s onto %s", child, b.ParentName)
			}

			if err := rc.Store.Untrack(ctx, branch); err != nil {
				return fmt.Errorf("untrack %s: %w", branch, err)
			}
			rc.Splog.Info("untracked %s", branch)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "do not prompt before reparenting children")
	return cmd
}
