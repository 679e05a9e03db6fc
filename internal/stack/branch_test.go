package stack_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"stacker.dev/stacker/internal/meta"
	"stacker.dev/stacker/internal/stack"
	"stacker.dev/stacker/internal/testhelper"
)

func TestBuildForestSingleChain(t *testing.T) {
	repo := testhelper.NewTempRepo(t)
	repo.CreateBranch(t, "feature-a")
	repo.Commit(t, "a.txt", "a", "add a")
	repo.CreateBranch(t, "feature-b")
	repo.Commit(t, "b.txt", "b", "add b")

	adapter := repo.Adapter(t)
	store := meta.NewStore(adapter)
	ctx := context.Background()

	require.NoError(t, store.Track(ctx, "feature-a", "main"))
	require.NoError(t, store.Track(ctx, "feature-b", "feature-a"))

	f, err := stack.BuildForest(ctx, adapter, store, []string{"main"})
	require.NoError(t, err)

	require.True(t, f.IsRoot("feature-a"))
	require.False(t, f.IsRoot("feature-b"))
	require.Equal(t, []string{"feature-b"}, f.Children("feature-a"))
	require.Equal(t, []string{"feature-a", "feature-b"}, f.Upstack("feature-a"))
	require.Equal(t, []string{"feature-a", "feature-b"}, f.Downstack("feature-b"))
}

func TestBuildForestBranchingSiblings(t *testing.T) {
	repo := testhelper.NewTempRepo(t)
	repo.CreateBranch(t, "base")
	repo.Commit(t, "base.txt", "base", "add base")
	repo.CreateBranch(t, "left")
	repo.Commit(t, "left.txt", "left", "add left")
	repo.CheckoutBranch(t, "base")
	repo.CreateBranch(t, "right")
	repo.Commit(t, "right.txt", "right", "add right")

	adapter := repo.Adapter(t)
	store := meta.NewStore(adapter)
	ctx := context.Background()

	require.NoError(t, store.Track(ctx, "base", "main"))
	require.NoError(t, store.Track(ctx, "left", "base"))
	require.NoError(t, store.Track(ctx, "right", "base"))

	f, err := stack.BuildForest(ctx, adapter, store, []string{"main"})
	require.NoError(t, err)

	require.Equal(t, []string{"left", "right"}, f.Children("base"))
	require.ElementsMatch(t, []string{"base", "left", "right"}, f.Upstack("base"))
}

func TestBuildForestUntrackedParentTreatedAsRoot(t *testing.T) {
	repo := testhelper.NewTempRepo(t)
	repo.CreateBranch(t, "orphan")
	repo.Commit(t, "o.txt", "o", "add o")

	adapter := repo.Adapter(t)
	store := meta.NewStore(adapter)
	ctx := context.Background()

	// Tracked with a parent name that was never itself tracked.
	require.NoError(t, store.Track(ctx, "orphan", "main"))

	f, err := stack.BuildForest(ctx, adapter, store, []string{"main"})
	require.NoError(t, err)
	require.True(t, f.IsRoot("orphan"))
}
