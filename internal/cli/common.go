package cli

import (
	"context"
	"fmt"

	"stacker.dev/stacker/internal/runtime"
	"stacker.dev/stacker/internal/stack"
)

// openContext opens the repository rooted at the process's working
// directory and wires its runtime collaborators. Every subcommand's RunE
// calls this first.
func openContext() (*runtime.Context, error) {
	return runtime.New("")
}

// resolveBranch returns explicit if set, else the current branch.
func resolveBranch(ctx context.Context, rc *runtime.Context, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	current, err := rc.Adapter.CurrentBranch(ctx)
	if err != nil {
		return "", fmt.Errorf("not on a branch; pass --branch")
	}
	return current, nil
}

// buildForest reconstructs the tracked-branch forest and its full
// root-first traversal order.
func buildForest(ctx context.Context, rc *runtime.Context) (*stack.Forest, []string, error) {
	f, err := stack.BuildForest(ctx, rc.Adapter, rc.Store, rc.Trunks())
	if err != nil {
		return nil, nil, err
	}
	names, err := rc.Store.ListTracked(ctx)
	if err != nil {
		return nil, nil, err
	}
	return f, f.AllOrder(names), nil
}

// scopeOrder resolves a branch plus the mutually exclusive
// --downstack/--only/--upstack flags into a traversal order, defaulting to
// the branch's fullstack when none are set.
func scopeOrder(f *stack.Forest, branch string, downstack, only, upstack bool, order []string) ([]string, error) {
	set := 0
	for _, b := range []bool{downstack, only, upstack} {
		if b {
			set++
		}
	}
	if set > 1 {
		return nil, fmt.Errorf("only one of --downstack, --only, or --upstack can be specified")
	}
	switch {
	case only:
		return []string{branch}, nil
	case downstack:
		return f.Downstack(branch), nil
	case upstack:
		return f.Upstack(branch), nil
	default:
		return f.Fullstack(branch, order), nil
	}
}
