package stack_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"stacker.dev/stacker/internal/meta"
	"stacker.dev/stacker/internal/stack"
	"stacker.dev/stacker/internal/stkerrors"
	"stacker.dev/stacker/internal/testhelper"
)

func TestValidatePassesForAncestorChain(t *testing.T) {
	repo := testhelper.NewTempRepo(t)
	repo.CreateBranch(t, "feature")
	repo.Commit(t, "a.txt", "a", "add a")

	adapter := repo.Adapter(t)
	store := meta.NewStore(adapter)
	ctx := context.Background()
	require.NoError(t, store.Track(ctx, "feature", "main"))

	f, err := stack.BuildForest(ctx, adapter, store, []string{"main"})
	require.NoError(t, err)

	div, err := stack.Validate(ctx, adapter, f, []string{"feature"})
	require.NoError(t, err)
	require.Nil(t, div)
}

func TestValidateDetectsDivergenceAfterTrunkMoves(t *testing.T) {
	repo := testhelper.NewTempRepo(t)
	repo.CreateBranch(t, "feature")
	repo.Commit(t, "a.txt", "a", "add a")

	adapter := repo.Adapter(t)
	store := meta.NewStore(adapter)
	ctx := context.Background()
	require.NoError(t, store.Track(ctx, "feature", "main"))

	// Rewrite trunk's history so feature's old base is no longer an
	// ancestor of trunk's new tip (feature itself is untouched, but its
	// stored parent relationship can no longer be confirmed).
	repo.CheckoutBranch(t, "main")
	repo.AmendLastCommit(t, "README.md", "rewritten\n")

	f, err := stack.BuildForest(ctx, adapter, store, []string{"main"})
	require.NoError(t, err)

	err = stack.ValidateAll(ctx, adapter, f, []string{"feature"})
	require.Error(t, err)
	require.ErrorIs(t, err, stkerrors.ErrValidationFailed)
}
