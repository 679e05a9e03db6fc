package submit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stacker.dev/stacker/internal/cliprompt"
	"stacker.dev/stacker/internal/gitexec"
	"stacker.dev/stacker/internal/meta"
	"stacker.dev/stacker/internal/stack"
	"stacker.dev/stacker/internal/stkerrors"
	"stacker.dev/stacker/internal/submit"
	"stacker.dev/stacker/internal/testhelper"
)

func setup(t *testing.T) (gitexec.Adapter, *testhelper.FakeHost, meta.Store, *stack.Forest, context.Context) {
	t.Helper()
	repo := testhelper.NewTempRepo(t)
	repo.CreateBranch(t, "feature")
	repo.Commit(t, "feature.txt", "feature", "add feature")
	repo.AddBareRemote(t, "origin")

	adapter := repo.Adapter(t)
	store := meta.NewStore(adapter)
	ctx := context.Background()
	require.NoError(t, store.Track(ctx, "feature", "main"))

	f, err := stack.BuildForest(ctx, adapter, store, []string{"main"})
	require.NoError(t, err)

	host := testhelper.NewFakeHost("acme", "widgets")
	return adapter, host, store, f, ctx
}

func TestPlanCreatesNewPullRequest(t *testing.T) {
	adapter, host, store, f, ctx := setup(t)
	pipeline := submit.NewPipeline(adapter, store, host, cliprompt.NonInteractivePrompter{})

	plans, err := pipeline.Plan(ctx, f, []string{"feature"}, submit.Options{})
	require.NoError(t, err)
	require.Len(t, plans, 1)
	require.Equal(t, submit.ActionCreate, plans[0].Action)
	require.Equal(t, "main", plans[0].Base)
}

func TestPlanHardStopsOnMergedPullRequest(t *testing.T) {
	adapter, host, store, f, ctx := setup(t)
	num := 7
	state := "MERGED"
	require.NoError(t, store.UpsertPRInfo(ctx, "feature", &meta.PrInfo{Number: &num, State: &state}))

	pipeline := submit.NewPipeline(adapter, store, host, cliprompt.NonInteractivePrompter{})
	plans, err := pipeline.Plan(ctx, f, []string{"feature"}, submit.Options{})
	require.Error(t, err)
	require.Nil(t, plans)

	var gated *stkerrors.SubmitGatedError
	require.ErrorAs(t, err, &gated)
	require.Equal(t, "feature", gated.Branch)
	require.Equal(t, "MERGED", gated.State)

	require.Zero(t, host.SubmitBatchCalls)
}

func TestPlanHardStopsWholeBatchEvenWhenOnlyOneSiblingIsMerged(t *testing.T) {
	repo := testhelper.NewTempRepo(t)
	repo.CreateBranch(t, "A")
	repo.Commit(t, "a.txt", "a", "add a")
	repo.CreateBranch(t, "B")
	repo.Commit(t, "b.txt", "b", "add b")
	repo.CreateBranch(t, "C")
	repo.Commit(t, "c.txt", "c", "add c")

	adapter := repo.Adapter(t)
	store := meta.NewStore(adapter)
	ctx := context.Background()
	require.NoError(t, store.Track(ctx, "A", "main"))
	require.NoError(t, store.Track(ctx, "B", "A"))
	require.NoError(t, store.Track(ctx, "C", "B"))

	num := 9
	state := "MERGED"
	require.NoError(t, store.UpsertPRInfo(ctx, "C", &meta.PrInfo{Number: &num, State: &state}))

	f, err := stack.BuildForest(ctx, adapter, store, []string{"main"})
	require.NoError(t, err)

	host := testhelper.NewFakeHost("acme", "widgets")
	pipeline := submit.NewPipeline(adapter, store, host, cliprompt.NonInteractivePrompter{})

	plans, err := pipeline.Plan(ctx, f, []string{"A", "B", "C"}, submit.Options{})
	require.Error(t, err)
	require.Nil(t, plans)
	require.Zero(t, host.SubmitBatchCalls)

	// A and B must not have been submitted either: no PR info was recorded
	// for them, and the host never saw a batch call.
	aInfo, err := store.GetPRInfo(ctx, "A")
	require.NoError(t, err)
	require.Nil(t, aInfo)
	bInfo, err := store.GetPRInfo(ctx, "B")
	require.NoError(t, err)
	require.Nil(t, bInfo)
}

func TestExecuteCreatesPRAndPersistsMetadata(t *testing.T) {
	adapter, host, store, f, ctx := setup(t)
	pipeline := submit.NewPipeline(adapter, store, host, cliprompt.NonInteractivePrompter{})

	plans, err := pipeline.Plan(ctx, f, []string{"feature"}, submit.Options{})
	require.NoError(t, err)

	results, err := pipeline.Execute(ctx, plans, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	require.Equal(t, submit.ActionCreate, results[0].Action)
	require.NotZero(t, results[0].Number)

	info, err := store.GetPRInfo(ctx, "feature")
	require.NoError(t, err)
	require.NotNil(t, info)
	require.Equal(t, results[0].Number, *info.Number)
	require.Equal(t, "OPEN", *info.State)
}

func TestExecuteAppliesSuccessesBeforeRaisingOnError(t *testing.T) {
	repo := testhelper.NewTempRepo(t)
	repo.CreateBranch(t, "good")
	repo.Commit(t, "good.txt", "good", "add good")
	repo.CheckoutBranch(t, "main")
	repo.CreateBranch(t, "bad")
	repo.Commit(t, "bad.txt", "bad", "add bad")
	repo.AddBareRemote(t, "origin")

	adapter := repo.Adapter(t)
	store := meta.NewStore(adapter)
	ctx := context.Background()
	require.NoError(t, store.Track(ctx, "good", "main"))
	require.NoError(t, store.Track(ctx, "bad", "main"))

	f, err := stack.BuildForest(ctx, adapter, store, []string{"main"})
	require.NoError(t, err)

	host := testhelper.NewFakeHost("acme", "widgets")
	host.FailBranch = "bad"
	host.FailErr = assert.AnError

	pipeline := submit.NewPipeline(adapter, store, host, cliprompt.NonInteractivePrompter{})
	plans, err := pipeline.Plan(ctx, f, []string{"good", "bad"}, submit.Options{})
	require.NoError(t, err)

	results, err := pipeline.Execute(ctx, plans, true)
	require.Error(t, err)
	require.Len(t, results, 2)

	goodInfo, err := store.GetPRInfo(ctx, "good")
	require.NoError(t, err)
	require.NotNil(t, goodInfo)
	require.NotNil(t, goodInfo.Number)

	badInfo, err := store.GetPRInfo(ctx, "bad")
	require.NoError(t, err)
	require.Nil(t, badInfo)
}

func TestPlanSkipsEmptyBranchWhenUserDeclines(t *testing.T) {
	repo := testhelper.NewTempRepo(t)
	repo.CreateBranch(t, "empty")

	adapter := repo.Adapter(t)
	store := meta.NewStore(adapter)
	ctx := context.Background()
	require.NoError(t, store.Track(ctx, "empty", "main"))

	f, err := stack.BuildForest(ctx, adapter, store, []string{"main"})
	require.NoError(t, err)

	host := testhelper.NewFakeHost("acme", "widgets")
	pipeline := submit.NewPipeline(adapter, store, host, cliprompt.NonInteractivePrompter{Answer: false})

	plans, err := pipeline.Plan(ctx, f, []string{"empty"}, submit.Options{})
	require.NoError(t, err)
	require.Len(t, plans, 1)
	require.Equal(t, submit.ActionSkip, plans[0].Action)
	require.Equal(t, "no changes against parent", plans[0].SkipWhy)
}
