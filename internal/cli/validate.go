package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"stacker.dev/stacker/internal/stack"
)

// newValidateCmd creates the validate command.
func newValidateCmd() *cobra.Command {
	var (
		branch    string
		downstack bool
		only      bool
		upstack   bool
		silent    bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that every branch's recorded parent is an ancestor of its tip",
		Long: `Check that each tracked branch in scope still has its recorded parent
as an ancestor of its current tip. Exits non-zero and reports the first
divergence found, in root-first order.`,
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
			scope, err := scopeOrder(f, target, downstack, only, upstack, order)
			if err != nil {
				return err
			}

			div, err := stack.Validate(ctx, rc.Adapter, f, scope)
			if err != nil {
				return err
			}
			if div == nil {
				if !silent {
					rc.Splog.Info("valid: every branch's parent is an ancestor of its tip")
				}
				return nil
			}
			if silent {
				return fmt.Errorf("%s diverged from %s", div.Branch, div.ExpectedParent)
			}
			rc.Splog.Error("%s's recorded parent %s is not an ancestor of its tip (actual base %s)",
				div.Branch, div.ExpectedParent, div.ActualBase)
			return fmt.Errorf("validation failed")
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "which branch to validate from; defaults to the current branch")
	cmd.Flags().BoolVar(&downstack, "downstack", false, "only validate this branch and its ancestors")
	cmd.Flags().BoolVar(&only, "only", false, "only validate this branch")
	cmd.Flags().BoolVar(&upstack, "upstack", false, "only validate this branch and its descendants")
	cmd.Flags().BoolVar(&silent, "silent", false, "suppress success output; still prints nothing extra on failure")

	return cmd
}
