package stack

import (
	"context"
	"fmt"

	"stacker.dev/stacker/internal/gitexec"
	"stacker.dev/stacker/internal/stkerrors"
)

// Validate checks every branch named in order against the invariant that a
// tracked branch's recorded parent must be an ancestor of the branch's
// current tip. It returns the first divergence found, walking in the given
// (root-first) order so a parent's divergence is reported before its
// children's. A child can't be validated meaningfully once its parent has
// already drifted.
func Validate(ctx context.Context, adapter gitexec.Adapter, f *Forest, order []string) (*stkerrors.Divergence, error) {
	for _, name := range order {
		b, ok := f.Branches[name]
		if !ok {
			continue
		}
		parentTip := b.ParentName
		if pb, tracked := f.Branches[b.ParentName]; tracked {
			parentTip = pb.Tip
		} else {
			tip, err := adapter.ReadRef(ctx, "refs/heads/"+b.ParentName)
			if err != nil {
				return nil, fmt.Errorf("resolve trunk %s: %w", b.ParentName, err)
			}
			parentTip = tip
		}

		isAncestor, err := adapter.IsAncestor(ctx, parentTip, b.Tip)
		if err != nil {
			return nil, fmt.Errorf("check ancestry of %s against %s: %w", name, b.ParentName, err)
		}
		if !isAncestor {
			// ActualBase is the first commit on b's own history also reachable
			// from the recorded parent (trunk or another stack member): the
			// merge-base, not the parent's tip, which b may have drifted away
			// from entirely. When the two share no history at all (e.g. the
			// trunk's root commit was rewritten) there is no merge-base; the
			// divergence is still reported, with ActualBase left empty.
			actualBase, err := adapter.MergeBase(ctx, b.Tip, parentTip)
			if err != nil {
				actualBase = ""
			}
			return &stkerrors.Divergence{
				Branch:         name,
				ExpectedParent: b.ParentName,
				ActualBase:     actualBase,
			}, nil
		}
	}
	return nil, nil
}

// ValidateAll is a convenience wrapper returning a stkerrors.ValidationFailedError
// when a divergence is found, for callers that want the idiomatic error path.
func ValidateAll(ctx context.Context, adapter gitexec.Adapter, f *Forest, order []string) error {
	div, err := Validate(ctx, adapter, f, order)
	if err != nil {
		return err
	}
	if div != nil {
		return stkerrors.NewValidationFailedError(*div)
	}
	return nil
}
