package submit

import (
	"context"
	"fmt"

	"stacker.dev/stacker/internal/cliprompt"
	"stacker.dev/stacker/internal/gitexec"
	"stacker.dev/stacker/internal/meta"
	"stacker.dev/stacker/internal/reviewhost"
	"stacker.dev/stacker/internal/stack"
	"stacker.dev/stacker/internal/stkerrors"
)

// Pipeline drives a submit run over a set of branches: this package owns
// planning and the host round-trip, and returns data for a caller
// (internal/cli) to render.
type Pipeline struct {
	Adapter  gitexec.Adapter
	Store    meta.Store
	Host     reviewhost.Host
	Prompter cliprompt.Prompter
	Remote   string
}

// NewPipeline returns a Pipeline wired to the given collaborators, using
// "origin" as the push remote.
func NewPipeline(adapter gitexec.Adapter, store meta.Store, host reviewhost.Host, prompter cliprompt.Prompter) *Pipeline {
	return &Pipeline{Adapter: adapter, Store: store, Host: host, Prompter: prompter, Remote: "origin"}
}

// Sync refreshes meta.Store's PrInfo for every branch from the review
// host. A branch with no pull request yet is left untouched rather than
// erroring.
func (p *Pipeline) Sync(ctx context.Context, branches []string) error {
	for _, branch := range branches {
		info, err := p.Host.FetchStatus(ctx, branch)
		if err != nil {
			return fmt.Errorf("sync PR status for %s: %w", branch, err)
		}
		if info == nil {
			continue
		}
		number := info.Number
		base := info.Base
		url := info.URL
		title := info.Title
		body := info.Body
		state := info.State
		draft := info.Draft
		if err := p.Store.UpsertPRInfo(ctx, branch, &meta.PrInfo{
			Number: &number, Base: &base, URL: &url, Title: &title, Body: &body, State: &state, IsDraft: &draft,
		}); err != nil {
			return fmt.Errorf("persist synced PR info for %s: %w", branch, err)
		}
	}
	return nil
}

// Plan decides, for each branch in order, whether to create a pull
// request, update one, or skip the branch.
// It first gates the whole batch: if any branch's PR is already MERGED or
// CLOSED, submitting any branch in the set would produce contradictory
// remote state, so Plan returns a *stkerrors.SubmitGatedError naming the
// offending branch and builds no plans at all, issuing no API call and no
// meta mutation. Past the gate, a branch with no diff against its resolved
// parent is skipped only after the Prompter confirms it (or unconditionally
// under opts.Force, which treats "skip" as the forced answer).
func (p *Pipeline) Plan(ctx context.Context, f *stack.Forest, order []string, opts Options) ([]Plan, error) {
	prInfos := make(map[string]*meta.PrInfo, len(order))
	for _, branch := range order {
		prInfo, err := p.Store.GetPRInfo(ctx, branch)
		if err != nil {
			return nil, fmt.Errorf("read PR info for %s: %w", branch, err)
		}
		prInfos[branch] = prInfo
		if prInfo != nil && prInfo.State != nil && !reviewhost.SubmittableStates[*prInfo.State] {
			return nil, stkerrors.NewSubmitGatedError(branch, *prInfo.State)
		}
	}

	plans := make([]Plan, 0, len(order))
	for _, branch := range order {
		b, ok := f.Branches[branch]
		if !ok {
			continue
		}

		prInfo := prInfos[branch]

		parentTip, err := p.resolveParentTip(ctx, f, b.ParentName)
		if err != nil {
			return nil, err
		}

		empty, err := p.Adapter.IsEmpty(ctx, branch, parentTip)
		if err != nil {
			return nil, fmt.Errorf("check whether %s is empty: %w", branch, err)
		}
		if empty {
			skip := true
			if !opts.Force {
				proceed, err := p.Prompter.Confirm(fmt.Sprintf("%s has no changes against %s. Submit anyway?", branch, b.ParentName), false)
				if err != nil {
					return nil, err
				}
				skip = !proceed
			}
			if skip {
				plans = append(plans, Plan{Branch: branch, Action: ActionSkip, SkipWhy: "no changes against parent"})
				continue
			}
		}

		plan := Plan{Branch: branch, Base: b.ParentName, Draft: opts.Draft}
		if opts.TitleFor != nil {
			plan.Title = opts.TitleFor(branch)
		} else {
			plan.Title = branch
		}
		if opts.BodyFor != nil {
			plan.Body = opts.BodyFor(branch)
		}

		if prInfo != nil && prInfo.Number != nil {
			plan.Action = ActionUpdate
			plan.PRNumber = *prInfo.Number
			if opts.Publish {
				plan.Draft = false
			} else if prInfo.IsDraft != nil {
				plan.Draft = *prInfo.IsDraft
			}
		} else {
			plan.Action = ActionCreate
		}

		plans = append(plans, plan)
	}
	return plans, nil
}

func (p *Pipeline) resolveParentTip(ctx context.Context, f *stack.Forest, parent string) (string, error) {
	if pb, ok := f.Branches[parent]; ok {
		return pb.Tip, nil
	}
	tip, err := p.Adapter.ReadRef(ctx, "refs/heads/"+parent)
	if err != nil {
		return "", fmt.Errorf("resolve parent %s: %w", parent, err)
	}
	return tip, nil
}

// Execute pushes every non-skipped branch, assembles one reviewhost.Request
// per plan, calls the host once, and applies each successful response to
// the meta store before returning the first error encountered. A transport
// failure on one branch never rolls back the branches that already
// succeeded.
func (p *Pipeline) Execute(ctx context.Context, plans []Plan, force bool) ([]Result, error) {
	results := make([]Result, 0, len(plans))
	var requests []reviewhost.Request
	var requestPlans []Plan

	for _, plan := range plans {
		if plan.Action == ActionSkip {
			results = append(results, Result{Branch: plan.Branch, Action: ActionSkip})
			continue
		}
		if err := p.Adapter.PushBranch(ctx, plan.Branch, p.Remote, force); err != nil {
			results = append(results, Result{Branch: plan.Branch, Action: plan.Action, Err: fmt.Errorf("push %s: %w", plan.Branch, err)})
			continue
		}
		requests = append(requests, reviewhost.Request{
			Branch:         plan.Branch,
			Base:           plan.Base,
			Title:          plan.Title,
			Body:           plan.Body,
			Draft:          plan.Draft,
			ExistingNumber: plan.PRNumber,
		})
		requestPlans = append(requestPlans, plan)
	}

	if len(requests) == 0 {
		return results, firstErr(results)
	}

	responses, err := p.Host.SubmitBatch(ctx, requests)
	if err != nil {
		return results, fmt.Errorf("submit batch: %w", err)
	}

	var firstBatchErr error
	for i, resp := range responses {
		plan := requestPlans[i]
		if resp.Err != nil {
			results = append(results, Result{Branch: plan.Branch, Action: plan.Action, Err: resp.Err})
			if firstBatchErr == nil {
				firstBatchErr = resp.Err
			}
			continue
		}

		number := resp.Number
		url := resp.URL
		base := resp.Base
		title := plan.Title
		body := plan.Body
		state := resp.State
		draft := resp.Draft
		if err := p.Store.UpsertPRInfo(ctx, plan.Branch, &meta.PrInfo{
			Number: &number, URL: &url, Base: &base, Title: &title, Body: &body, State: &state, IsDraft: &draft,
		}); err != nil {
			results = append(results, Result{Branch: plan.Branch, Action: plan.Action, Err: fmt.Errorf("record submitted PR for %s: %w", plan.Branch, err)})
			if firstBatchErr == nil {
				firstBatchErr = err
			}
			continue
		}

		results = append(results, Result{Branch: plan.Branch, Action: plan.Action, URL: url, Number: number})
	}

	if err := firstErr(results); err != nil {
		return results, err
	}
	return results, firstBatchErr
}

func firstErr(results []Result) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}
