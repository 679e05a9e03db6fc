package stack_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"stacker.dev/stacker/internal/meta"
	"stacker.dev/stacker/internal/stack"
	"stacker.dev/stacker/internal/testhelper"
)

func TestRestackRebasesOntoMovedTrunk(t *testing.T) {
	repo := testhelper.NewTempRepo(t)
	repo.CreateBranch(t, "feature")
	featureTip := repo.Commit(t, "feature.txt", "feature", "add feature")

	adapter := repo.Adapter(t)
	store := meta.NewStore(adapter)
	ctx := context.Background()
	require.NoError(t, store.Track(ctx, "feature", "main"))

	repo.CheckoutBranch(t, "main")
	repo.Commit(t, "trunk.txt", "trunk change", "advance trunk")

	f, err := stack.BuildForest(ctx, adapter, store, []string{"main"})
	require.NoError(t, err)

	restacker := stack.NewRestacker(adapter, store)
	results, err := restacker.Restack(ctx, f, []string{"feature"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, stack.RestackDone, results[0].Result)

	newTip := repo.Rev(t, "feature")
	require.NotEqual(t, featureTip, newTip)

	isAncestor, err := adapter.IsAncestor(ctx, repo.Rev(t, "main"), newTip)
	require.NoError(t, err)
	require.True(t, isAncestor)

	// RebaseOnto checks main (the branch checked out before the restack)
	// back out, so look at the restacked branch's own tree.
	repo.CheckoutBranch(t, "feature")
	testhelper.RequireFile(t, repo.Dir+"/feature.txt", "feature")
	testhelper.RequireFile(t, repo.Dir+"/trunk.txt", "trunk change")
}

func TestRestackIsIdempotentWhenAlreadyBased(t *testing.T) {
	repo := testhelper.NewTempRepo(t)
	repo.CreateBranch(t, "feature")
	repo.Commit(t, "feature.txt", "feature", "add feature")

	adapter := repo.Adapter(t)
	store := meta.NewStore(adapter)
	ctx := context.Background()
	require.NoError(t, store.Track(ctx, "feature", "main"))

	f, err := stack.BuildForest(ctx, adapter, store, []string{"main"})
	require.NoError(t, err)

	restacker := stack.NewRestacker(adapter, store)
	results, err := restacker.Restack(ctx, f, []string{"feature"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, stack.RestackUnneeded, results[0].Result)
}

func TestRestackPropagatesThroughChildrenUsingPrevRefTrick(t *testing.T) {
	repo := testhelper.NewTempRepo(t)
	repo.CreateBranch(t, "parent")
	repo.Commit(t, "parent.txt", "parent", "add parent")
	repo.CreateBranch(t, "child")
	repo.Commit(t, "child.txt", "child", "add child")

	adapter := repo.Adapter(t)
	store := meta.NewStore(adapter)
	ctx := context.Background()
	require.NoError(t, store.Track(ctx, "parent", "main"))
	require.NoError(t, store.Track(ctx, "child", "parent"))

	repo.CheckoutBranch(t, "main")
	repo.Commit(t, "trunk.txt", "trunk change", "advance trunk")

	f, err := stack.BuildForest(ctx, adapter, store, []string{"main"})
	require.NoError(t, err)

	restacker := stack.NewRestacker(adapter, store)
	results, err := restacker.Restack(ctx, f, f.Upstack("parent"))
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "parent", results[0].Branch)
	require.Equal(t, stack.RestackDone, results[0].Result)
	require.Equal(t, "child", results[1].Branch)
	require.Equal(t, stack.RestackDone, results[1].Result)

	// RebaseOnto checks main back out afterwards; inspect child's tree.
	repo.CheckoutBranch(t, "child")
	testhelper.RequireFile(t, repo.Dir+"/parent.txt", "parent")
	testhelper.RequireFile(t, repo.Dir+"/child.txt", "child")
	testhelper.RequireFile(t, repo.Dir+"/trunk.txt", "trunk change")

	childIsAncestor, err := adapter.IsAncestor(ctx, repo.Rev(t, "main"), repo.Rev(t, "child"))
	require.NoError(t, err)
	require.True(t, childIsAncestor)
}

func TestRestackOntoReparentsAndRestacksUpstack(t *testing.T) {
	repo := testhelper.NewTempRepo(t)
	repo.CreateBranch(t, "left")
	repo.Commit(t, "left.txt", "left", "add left")
	repo.CheckoutBranch(t, "main")
	repo.CreateBranch(t, "right")
	repo.Commit(t, "right.txt", "right", "add right")
	repo.CheckoutBranch(t, "left")
	repo.CreateBranch(t, "child")
	repo.Commit(t, "child.txt", "child", "add child")

	adapter := repo.Adapter(t)
	store := meta.NewStore(adapter)
	ctx := context.Background()
	require.NoError(t, store.Track(ctx, "left", "main"))
	require.NoError(t, store.Track(ctx, "right", "main"))
	require.NoError(t, store.Track(ctx, "child", "left"))

	f, err := stack.BuildForest(ctx, adapter, store, []string{"main"})
	require.NoError(t, err)

	restacker := stack.NewRestacker(adapter, store)
	results, err := restacker.RestackOnto(ctx, f, "child", "right")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, stack.RestackDone, results[0].Result)

	newParent, ok, err := store.GetParent(ctx, "child")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "right", newParent)

	testhelper.RequireFile(t, repo.Dir+"/child.txt", "child")
	testhelper.RequireFile(t, repo.Dir+"/right.txt", "right")

	isAncestor, err := adapter.IsAncestor(ctx, repo.Rev(t, "right"), repo.Rev(t, "child"))
	require.NoError(t, err)
	require.True(t, isAncestor)
}
