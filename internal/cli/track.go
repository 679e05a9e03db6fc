package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newTrackCmd creates the track command.
func newTrackCmd() *cobra.Command {
	var parent string

	cmd := &cobra.Command{
		Use:   "track [branch]",
		Short: "Start tracking a branch, recording its parent",
		Long: `Start tracking the current (or given) branch, recording the branch
named by --parent as its stack parent. The parent must already be tracked,
or be a configured trunk.`,
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
			if rc.RepoConfig.IsTrunk(branch) {
				return fmt.Errorf("%s is a trunk branch; trunks are not tracked", branch)
			}
			if parent == "" {
				return fmt.Errorf("--parent is required")
			}
			if parent == branch {
				return fmt.Errorf("%s cannot be its own parent", branch)
			}

			if !rc.RepoConfig.IsTrunk(parent) {
				_, ok, err := rc.Store.GetParent(ctx, parent)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("parent %s is not tracked; track it first or pass a trunk branch", parent)
				}
			}
			if _, err := rc.Adapter.ReadRef(ctx, "refs/heads/"+branch); err != nil {
				return fmt.Errorf("branch %q not found", branch)
			}

			if err := rc.Store.Track(ctx, branch, parent); err != nil {
				return fmt.Errorf("track %s: %w", branch, err)
			}

			rc.Splog.Info("tracking %s with parent %s", branch, parent)
			return nil
		},
	}

	cmd.Flags().StringVarP(&parent, "parent", "p", "", "the branch's parent; must be tracked or a trunk")
	return cmd
}
