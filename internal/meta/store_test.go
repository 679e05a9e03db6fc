package meta_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"stacker.dev/stacker/internal/meta"
	"stacker.dev/stacker/internal/testhelper"
)

func TestStoreMissingBranchReturnsEmpty(t *testing.T) {
	repo := testhelper.NewTempRepo(t)
	store := meta.NewStore(repo.Adapter(t))

	_, ok, err := store.GetParent(context.Background(), "feature")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreTrackAndReadParent(t *testing.T) {
	repo := testhelper.NewTempRepo(t)
	repo.CreateBranch(t, "feature")
	store := meta.NewStore(repo.Adapter(t))
	ctx := context.Background()

	require.NoError(t, store.Track(ctx, "feature", "main"))

	parent, ok, err := store.GetParent(ctx, "feature")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "main", parent)
}

func TestStorePrevRefRoundTrip(t *testing.T) {
	repo := testhelper.NewTempRepo(t)
	repo.CreateBranch(t, "feature")
	sha := repo.Commit(t, "a.txt", "a", "add a")
	store := meta.NewStore(repo.Adapter(t))
	ctx := context.Background()

	_, ok, err := store.GetPrevRef(ctx, "feature")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.SetPrevRef(ctx, "feature", sha))

	got, ok, err := store.GetPrevRef(ctx, "feature")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, sha, got)
}

func TestStoreUpsertPRInfoMergesFields(t *testing.T) {
	repo := testhelper.NewTempRepo(t)
	repo.CreateBranch(t, "feature")
	store := meta.NewStore(repo.Adapter(t))
	ctx := context.Background()

	num := 42
	state := "OPEN"
	require.NoError(t, store.UpsertPRInfo(ctx, "feature", &meta.PrInfo{Number: &num, State: &state}))

	url := "https://example.com/pr/42"
	require.NoError(t, store.UpsertPRInfo(ctx, "feature", &meta.PrInfo{URL: &url}))

	info, err := store.GetPRInfo(ctx, "feature")
	require.NoError(t, err)
	require.NotNil(t, info)
	require.Equal(t, 42, *info.Number)
	require.Equal(t, "OPEN", *info.State)
	require.Equal(t, url, *info.URL)
}

func TestStoreListTrackedOrderedBySequence(t *testing.T) {
	repo := testhelper.NewTempRepo(t)
	repo.CreateBranch(t, "c")
	repo.CheckoutBranch(t, "main")
	repo.CreateBranch(t, "a")
	repo.CheckoutBranch(t, "main")
	repo.CreateBranch(t, "b")

	store := meta.NewStore(repo.Adapter(t))
	ctx := context.Background()

	require.NoError(t, store.Track(ctx, "c", "main"))
	require.NoError(t, store.Track(ctx, "a", "main"))
	require.NoError(t, store.Track(ctx, "b", "a"))

	tracked, err := store.ListTracked(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"c", "a", "b"}, tracked)
}

func TestStoreUntrackRemovesRef(t *testing.T) {
	repo := testhelper.NewTempRepo(t)
	repo.CreateBranch(t, "feature")
	store := meta.NewStore(repo.Adapter(t))
	ctx := context.Background()

	require.NoError(t, store.Track(ctx, "feature", "main"))
	require.NoError(t, store.Untrack(ctx, "feature"))

	_, ok, err := store.GetParent(ctx, "feature")
	require.NoError(t, err)
	require.False(t, ok)
}
