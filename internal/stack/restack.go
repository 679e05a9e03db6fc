package stack

import (
	"context"
	"fmt"

	"stacker.dev/stacker/internal/gitexec"
	"stacker.dev/stacker/internal/meta"
	"stacker.dev/stacker/internal/stkerrors"
)

// Restacker drives the restack algorithms. It operates on a Forest already
// built by BuildForest, mutating Git state through the adapter and
// recording the results of each rewrite back into the meta store as it
// goes. A restack is not transactional: a conflict midway leaves everything
// already rewritten as rewritten.
type Restacker struct {
	Adapter gitexec.Adapter
	Store   meta.Store
}

// NewRestacker returns a Restacker wired to adapter and store.
func NewRestacker(adapter gitexec.Adapter, store meta.Store) *Restacker {
	return &Restacker{Adapter: adapter, Store: store}
}

// Restack rewrites each branch named in order (expected root-first, so a
// parent is rewritten before its children) onto its recorded parent's
// current tip. It is idempotent: a branch already based on its parent's tip
// is reported RestackUnneeded and left untouched.
//
// The "prev-ref trick": after a branch is rewritten, its pre-rewrite tip is
// recorded as its own PrevRef. When that branch is restacked again, its own
// recorded PrevRef, not its parent's old tip, is the old-base argument to
// `git rebase --onto newBase oldBase`, since by then the parent has already
// moved. A branch with no PrevRef yet uses the merge-base of its tip and
// its parent's current tip instead.
func (r *Restacker) Restack(ctx context.Context, f *Forest, order []string) ([]RestackBranchResult, error) {
	var results []RestackBranchResult
	for _, name := range order {
		b, ok := f.Branches[name]
		if !ok {
			continue
		}

		newBase, err := r.resolveBase(ctx, f, b.ParentName)
		if err != nil {
			return results, err
		}

		oldBase := b.PrevRef
		if oldBase == "" {
			// Never rewritten before; the old base is the merge-base with the
			// parent's current tip.
			oldBase, err = r.Adapter.MergeBase(ctx, newBase, b.Tip)
			if err != nil {
				return results, fmt.Errorf("compute merge-base for %s: %w", name, err)
			}
		}

		isAncestor, err := r.Adapter.IsAncestor(ctx, newBase, b.Tip)
		if err != nil {
			return results, fmt.Errorf("check ancestry for %s: %w", name, err)
		}
		if isAncestor {
			results = append(results, RestackBranchResult{Branch: name, Result: RestackUnneeded, RebasedBranchBase: newBase})
			continue
		}

		preRewriteTip := b.Tip
		res, err := r.Adapter.RebaseOnto(ctx, name, newBase, oldBase)
		if err != nil {
			return results, fmt.Errorf("rebase %s onto %s: %w", name, newBase, err)
		}
		if res == gitexec.RebaseConflict {
			results = append(results, RestackBranchResult{Branch: name, Result: RestackConflict, RebasedBranchBase: newBase})
			return results, stkerrors.NewRebaseConflictError(name, fmt.Sprintf("onto %s", newBase))
		}

		if err := r.Store.SetPrevRef(ctx, name, preRewriteTip); err != nil {
			return results, fmt.Errorf("record prev-ref for %s: %w", name, err)
		}
		newTip, err := r.Adapter.ReadRef(ctx, "refs/heads/"+name)
		if err != nil {
			return results, fmt.Errorf("read rewritten tip of %s: %w", name, err)
		}
		b.Tip = newTip

		results = append(results, RestackBranchResult{Branch: name, Result: RestackDone, RebasedBranchBase: newBase})
	}
	return results, nil
}

// RestackOnto reparents branch onto newParent and restacks branch plus its
// upstack, used by `stacker restack --onto` and by move/reparent-style
// commands built on this engine. It differs from Restack only in the first
// step: the old base for branch itself is its *current* recorded parent's
// tip rather than its own PrevRef, since it's branch's relationship to its
// old parent, not to itself, that changed.
func (r *Restacker) RestackOnto(ctx context.Context, f *Forest, branch, newParent string) ([]RestackBranchResult, error) {
	b, ok := f.Branches[branch]
	if !ok {
		return nil, stkerrors.NewBranchNotFoundError(branch)
	}

	oldParentBase, err := r.resolveBase(ctx, f, b.ParentName)
	if err != nil {
		return nil, err
	}
	newBase, err := r.resolveBase(ctx, f, newParent)
	if err != nil {
		return nil, err
	}

	preRewriteTip := b.Tip
	res, err := r.Adapter.RebaseOnto(ctx, branch, newBase, oldParentBase)
	if err != nil {
		return nil, fmt.Errorf("rebase %s onto %s: %w", branch, newParent, err)
	}
	if res == gitexec.RebaseConflict {
		return []RestackBranchResult{{Branch: branch, Result: RestackConflict, RebasedBranchBase: newBase}},
			stkerrors.NewRebaseConflictError(branch, fmt.Sprintf("reparenting onto %s", newParent))
	}

	if err := r.Store.SetParent(ctx, branch, newParent); err != nil {
		return nil, fmt.Errorf("record new parent for %s: %w", branch, err)
	}
	if err := r.Store.SetPrevRef(ctx, branch, preRewriteTip); err != nil {
		return nil, fmt.Errorf("record prev-ref for %s: %w", branch, err)
	}
	newTip, err := r.Adapter.ReadRef(ctx, "refs/heads/"+branch)
	if err != nil {
		return nil, fmt.Errorf("read rewritten tip of %s: %w", branch, err)
	}
	b.Tip = newTip
	b.ParentName = newParent

	results := []RestackBranchResult{{Branch: branch, Result: RestackDone, RebasedBranchBase: newBase}}

	childResults, err := r.Restack(ctx, f, f.Upstack(branch)[1:])
	if err != nil {
		return append(results, childResults...), err
	}
	return append(results, childResults...), nil
}

// resolveBase returns the current tip of name, whether it's a tracked
// branch or a trunk.
func (r *Restacker) resolveBase(ctx context.Context, f *Forest, name string) (string, error) {
	if b, ok := f.Branches[name]; ok {
		return b.Tip, nil
	}
	tip, err := r.Adapter.ReadRef(ctx, "refs/heads/"+name)
	if err != nil {
		return "", fmt.Errorf("resolve base %s: %w", name, err)
	}
	return tip, nil
}
