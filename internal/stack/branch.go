package stack

import (
	"context"
	"fmt"

	"stacker.dev/stacker/internal/gitexec"
	"stacker.dev/stacker/internal/meta"
	"stacker.dev/stacker/internal/stkerrors"
)

// Branch is a single node in the forest: a tracked branch plus its resolved
// parent name and current tip. It is a thin read model over meta.Store and
// gitexec.Adapter, not an independent source of truth.
type Branch struct {
	Name       string
	ParentName string
	Tip        string // current SHA of refs/heads/<Name>
	PrevRef    string // last-recorded pre-rewrite tip, "" if never set
	Children   []string
}

// Forest is the set of tracked branches rooted at the repo's trunks, built
// fresh from meta.Store + gitexec.Adapter for each operation. It is never
// persisted as a whole, only reconstructed.
type Forest struct {
	Trunks   map[string]bool
	Branches map[string]*Branch
}

// IsRoot reports whether branch has no tracked parent within the forest
// (either it's a trunk, or its parent was never tracked).
func (f *Forest) IsRoot(name string) bool {
	b, ok := f.Branches[name]
	if !ok {
		return true
	}
	_, parentTracked := f.Branches[b.ParentName]
	return !parentTracked
}

// Children returns the tracked children of branch, in stable meta-sequence
// order as assigned by ListTracked.
func (f *Forest) Children(name string) []string {
	b, ok := f.Branches[name]
	if !ok {
		return nil
	}
	return b.Children
}

// BuildForest reconstructs the tracked-branch forest from the meta store,
// resolving each branch's current tip via the Git adapter. A branch whose
// parent is not itself tracked is treated as rooted directly on trunk.
func BuildForest(ctx context.Context, adapter gitexec.Adapter, store meta.Store, trunks []string) (*Forest, error) {
	names, err := store.ListTracked(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tracked branches: %w", err)
	}

	trunkSet := make(map[string]bool, len(trunks))
	for _, t := range trunks {
		trunkSet[t] = true
	}

	f := &Forest{Trunks: trunkSet, Branches: make(map[string]*Branch, len(names))}
	for _, name := range names {
		parent, ok, err := store.GetParent(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("read parent of %s: %w", name, err)
		}
		if !ok {
			return nil, stkerrors.NewStackBuildError(name, "tracked branch has no recorded parent")
		}
		tip, err := adapter.ReadRef(ctx, "refs/heads/"+name)
		if err != nil {
			return nil, stkerrors.NewStackBuildError(name, fmt.Sprintf("branch ref missing: %v", err))
		}
		prevRef, _, err := store.GetPrevRef(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("read prev-ref of %s: %w", name, err)
		}
		f.Branches[name] = &Branch{Name: name, ParentName: parent, Tip: tip, PrevRef: prevRef}
	}

	// Wire children in the same order names were returned (meta sequence
	// order), so sibling traversal is reproducible.
	for _, name := range names {
		b := f.Branches[name]
		if parent, ok := f.Branches[b.ParentName]; ok {
			parent.Children = append(parent.Children, name)
		}
	}
	return f, nil
}

// Roots returns the names of every tracked branch whose parent is a trunk
// or untracked, in meta-sequence order.
func (f *Forest) Roots(order []string) []string {
	var roots []string
	for _, name := range order {
		if f.IsRoot(name) {
			roots = append(roots, name)
		}
	}
	return roots
}

// Walk visits name and every descendant in root-first (parent before
// children) depth-first order, so a parent is always rewritten before its
// children.
func (f *Forest) Walk(name string, visit func(string) error) error {
	if err := visit(name); err != nil {
		return err
	}
	for _, child := range f.Children(name) {
		if err := f.Walk(child, visit); err != nil {
			return err
		}
	}
	return nil
}

// Upstack returns name and every descendant, root-first.
func (f *Forest) Upstack(name string) []string {
	var out []string
	_ = f.Walk(name, func(n string) error {
		out = append(out, n)
		return nil
	})
	return out
}

// Downstack returns name and its tracked ancestors, root-first. The trunk
// itself is not included.
func (f *Forest) Downstack(name string) []string {
	var chain []string
	cur := name
	for {
		chain = append([]string{cur}, chain...)
		b, ok := f.Branches[cur]
		if !ok {
			break
		}
		if _, parentTracked := f.Branches[b.ParentName]; !parentTracked {
			break
		}
		cur = b.ParentName
	}
	return chain
}

// Fullstack returns every tracked branch reachable from name's connected
// component: its downstack chain plus the upstack of every branch on that
// chain.
func (f *Forest) Fullstack(name string, order []string) []string {
	chain := f.Downstack(name)
	seen := make(map[string]bool)
	var out []string
	for _, b := range chain {
		for _, n := range f.Upstack(b) {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

// Select resolves scope relative to branch into an ordered, root-first list
// of branch names.
func (f *Forest) Select(branch string, scope Scope, order []string) []string {
	switch scope {
	case ScopeUpstack:
		return f.Upstack(branch)
	case ScopeDownstack:
		return f.Downstack(branch)
	case ScopeFullstack:
		return f.Fullstack(branch, order)
	default:
		return []string{branch}
	}
}

// AllOrder returns every tracked branch in root-first depth-first order,
// given names in meta-sequence order (as returned by Store.ListTracked).
// This is the traversal order a full restack requires: every parent
// visited before its children, siblings visited in insertion order.
func (f *Forest) AllOrder(names []string) []string {
	var order []string
	seen := make(map[string]bool)
	for _, root := range f.Roots(names) {
		_ = f.Walk(root, func(n string) error {
			if !seen[n] {
				seen[n] = true
				order = append(order, n)
			}
			return nil
		})
	}
	return order
}
