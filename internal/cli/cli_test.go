package cli_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"stacker.dev/stacker/internal/cli"
	"stacker.dev/stacker/internal/testhelper"
)

// run executes the root command with args against the process's current
// working directory, which tests point at a temp repo via t.Chdir.
func run(t *testing.T, args ...string) error {
	t.Helper()
	root := cli.NewRootCmd("test")
	root.SetArgs(args)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	return root.Execute()
}

func TestInitTrackValidateRestackCycle(t *testing.T) {
	repo := testhelper.NewTempRepo(t)
	repo.CreateBranch(t, "feature")
	repo.Commit(t, "feature.txt", "feature", "add feature")
	repo.CreateBranch(t, "feature-2")
	repo.Commit(t, "feature2.txt", "feature2", "add feature2")

	t.Chdir(repo.Dir)

	require.NoError(t, run(t, "init", "--trunk", "main"))
	require.NoError(t, run(t, "track", "feature", "--parent", "main"))
	require.NoError(t, run(t, "track", "feature-2", "--parent", "feature"))

	require.NoError(t, run(t, "validate"))

	repo.CheckoutBranch(t, "main")
	repo.Commit(t, "trunk.txt", "trunk change", "advance trunk")

	require.NoError(t, run(t, "restack", "--branch", "feature", "--upstack"))

	repo.CheckoutBranch(t, "feature-2")
	testhelper.RequireFile(t, repo.Dir+"/trunk.txt", "trunk change")
	testhelper.RequireFile(t, repo.Dir+"/feature.txt", "feature")
	testhelper.RequireFile(t, repo.Dir+"/feature2.txt", "feature2")

	require.NoError(t, run(t, "validate"))
}

func TestRestackOntoReparentsBranchAndUpstack(t *testing.T) {
	repo := testhelper.NewTempRepo(t)
	repo.CreateBranch(t, "A")
	repo.Commit(t, "a.txt", "a", "add a")
	repo.CreateBranch(t, "B")
	repo.Commit(t, "b.txt", "b", "add b")

	repo.CheckoutBranch(t, "main")
	repo.CreateBranch(t, "feature")
	repo.Commit(t, "feature.txt", "feature", "add feature")

	t.Chdir(repo.Dir)

	require.NoError(t, run(t, "init", "--trunk", "main"))
	require.NoError(t, run(t, "track", "A", "--parent", "main"))
	require.NoError(t, run(t, "track", "B", "--parent", "A"))
	require.NoError(t, run(t, "track", "feature", "--parent", "main"))

	require.NoError(t, run(t, "restack", "--branch", "A", "--onto", "feature"))

	repo.CheckoutBranch(t, "B")
	testhelper.RequireFile(t, repo.Dir+"/feature.txt", "feature")
	testhelper.RequireFile(t, repo.Dir+"/a.txt", "a")
	testhelper.RequireFile(t, repo.Dir+"/b.txt", "b")

	require.NoError(t, run(t, "validate"))
}

func TestUntrackReparentsChildren(t *testing.T) {
	repo := testhelper.NewTempRepo(t)
	repo.CreateBranch(t, "feature")
	repo.Commit(t, "feature.txt", "feature", "add feature")
	repo.CreateBranch(t, "feature-2")
	repo.Commit(t, "feature2.txt", "feature2", "add feature2")

	t.Chdir(repo.Dir)

	require.NoError(t, run(t, "init", "--trunk", "main"))
	require.NoError(t, run(t, "track", "feature", "--parent", "main"))
	require.NoError(t, run(t, "track", "feature-2", "--parent", "feature"))

	require.NoError(t, run(t, "untrack", "feature", "--force"))
	require.NoError(t, run(t, "validate"))
}

func TestValidateFailsAfterTrunkAmend(t *testing.T) {
	repo := testhelper.NewTempRepo(t)
	repo.CreateBranch(t, "feature")
	repo.Commit(t, "feature.txt", "feature", "add feature")

	t.Chdir(repo.Dir)
	require.NoError(t, run(t, "init", "--trunk", "main"))
	require.NoError(t, run(t, "track", "feature", "--parent", "main"))

	repo.CheckoutBranch(t, "main")
	repo.AmendLastCommit(t, "README.md", "rewritten root")
	repo.CheckoutBranch(t, "feature")

	require.Error(t, run(t, "validate", "--silent"))
}

func TestLogPrintsTrackedBranches(t *testing.T) {
	repo := testhelper.NewTempRepo(t)
	repo.CreateBranch(t, "feature")
	repo.Commit(t, "feature.txt", "feature", "add feature")

	t.Chdir(repo.Dir)
	require.NoError(t, run(t, "init", "--trunk", "main"))
	require.NoError(t, run(t, "track", "feature", "--parent", "main"))

	require.NoError(t, run(t, "log"))
}

func TestAbortWithNoPendingOperationErrors(t *testing.T) {
	repo := testhelper.NewTempRepo(t)
	t.Chdir(repo.Dir)
	require.NoError(t, run(t, "init", "--trunk", "main"))
	require.Error(t, run(t, "abort"))
}

func TestMain(m *testing.M) {
	os.Exit(m.Run())
}
