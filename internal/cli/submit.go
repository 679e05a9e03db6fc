package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"stacker.dev/stacker/internal/cliprompt"
	"stacker.dev/stacker/internal/submit"
)

// newSubmitCmd creates the submit command.
func newSubmitCmd() *cobra.Command {
	var (
		branch         string
		downstack      bool
		only           bool
		upstack        bool
		draft          bool
		publish        bool
		mergeWhenReady bool
		force          bool
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Create or update pull requests for every branch in scope",
		Long: `Create or update a pull request for each branch in scope: syncs PR
state, then stops the whole batch if any branch's PR already merged or
closed (run 'stacker sync' or reopen it first). Past that gate,
branches with no diff against their parent are skipped (after confirming
unless --force), then the rest are pushed and submitted in one batch.`,
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
			scope, err := scopeOrder(f, target, downstack, only, upstack, order)
			if err != nil {
				return err
			}

			prompter := rc.Prompter
			if force {
				prompter = cliprompt.NonInteractivePrompter{Answer: false}
			}
			pipeline := submit.NewPipeline(rc.Adapter, rc.Store, rc.Host, prompter)

			if err := pipeline.Sync(ctx, scope); err != nil {
				return err
			}

			plans, err := pipeline.Plan(ctx, f, scope, submit.Options{
				Draft:          draft,
				Publish:        publish,
				MergeWhenReady: mergeWhenReady,
				Force:          force,
			})
			if err != nil {
				return err
			}

			results, err := pipeline.Execute(ctx, plans, force)
			for _, r := range results {
				switch {
				case r.Err != nil:
					rc.Splog.Error("%s: %v", r.Branch, r.Err)
				case r.Action == submit.ActionSkip:
					rc.Splog.Debug("skipped %s", r.Branch)
				default:
					rc.Splog.Info("%sd %s: %s", r.Action, r.Branch, r.URL)
				}
			}
			if err != nil {
				return fmt.Errorf("submit: %w", err)
			}

			if mergeWhenReady {
				for _, plan := range plans {
					if plan.Action == submit.ActionSkip {
						continue
					}
					status, err := rc.Host.ChecksStatus(ctx, plan.Branch)
					if err != nil {
						return err
					}
					if status.Passing && !status.Pending {
						if err := rc.Host.Merge(ctx, plan.Branch); err != nil {
							return err
						}
						rc.Splog.Info("merged %s", plan.Branch)
					}
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "which branch to submit from; defaults to the current branch")
	cmd.Flags().BoolVar(&downstack, "downstack", false, "only submit this branch and its ancestors")
	cmd.Flags().BoolVar(&only, "only", false, "only submit this branch")
	cmd.Flags().BoolVar(&upstack, "upstack", false, "only submit this branch and its descendants")
	cmd.Flags().BoolVar(&draft, "draft", false, "create new pull requests as drafts")
	cmd.Flags().BoolVar(&publish, "publish", false, "mark existing draft pull requests as ready for review")
	cmd.Flags().BoolVar(&mergeWhenReady, "merge-when-ready", false, "after submitting, merge each branch whose checks have already passed")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation for empty branches and use --force-with-lease when pushing")

	return cmd
}
