package gitexec

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"stacker.dev/stacker/internal/stkerrors"
)

// RebaseResult reports whether a rebase completed or hit a conflict.
type RebaseResult int

const (
	RebaseDone RebaseResult = iota
	RebaseConflict
)

// Adapter is the synchronous interface to Git that the stack engine depends
// on. Every operation is a blocking child-process call or a go-git read;
// the adapter performs no retries. Recovery is the caller's policy.
type Adapter interface {
	MergeBase(ctx context.Context, a, b string) (string, error)
	IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error)
	RebaseOnto(ctx context.Context, branch, newBase, oldBase string) (RebaseResult, error)
	RebaseContinue(ctx context.Context) (RebaseResult, error)
	RebaseAbort(ctx context.Context) error
	RebaseInProgress(ctx context.Context) bool

	Checkout(ctx context.Context, branch string) error
	CheckoutDetached(ctx context.Context, rev string) error
	CurrentBranch(ctx context.Context) (string, error)
	ListBranches(ctx context.Context) ([]string, error)
	DeleteBranch(ctx context.Context, branch string) error
	RenameBranch(ctx context.Context, oldName, newName string) error

	ReadRef(ctx context.Context, name string) (string, error)
	UpdateRef(ctx context.Context, name, sha string) error
	DeleteRef(ctx context.Context, name string) error
	ListRefs(ctx context.Context, prefix string) (map[string]string, error)
	CreateBlob(ctx context.Context, content string) (string, error)
	ReadBlob(ctx context.Context, sha string) (string, error)

	UncommittedChanges(ctx context.Context) (bool, error)
	IsEmpty(ctx context.Context, branch, base string) (bool, error)

	PushBranch(ctx context.Context, branch, remote string, force bool) error
	GetRemote(ctx context.Context) string
	RemoteURL(ctx context.Context, remote string) (string, error)

	RepoRoot() string
}

type realAdapter struct {
	runner *CommandRunner
	repo   *repoHandle
}

// NewAdapter opens the repository rooted at dir (or the process cwd if dir
// is empty) and returns a real Adapter backed by git subprocesses + go-git.
func NewAdapter(dir string) (Adapter, error) {
	repo, err := openRepo(dir)
	if err != nil {
		return nil, err
	}
	return &realAdapter{runner: NewCommandRunner(repo.Root()), repo: repo}, nil
}

func (a *realAdapter) RepoRoot() string { return a.repo.root }

func (a *realAdapter) MergeBase(ctx context.Context, refA, refB string) (string, error) {
	hashA, err := a.repo.resolveRef(refA)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", refA, err)
	}
	hashB, err := a.repo.resolveRef(refB)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", refB, err)
	}
	commitA, err := a.repo.repo.CommitObject(hashA)
	if err != nil {
		return "", fmt.Errorf("load commit %s: %w", refA, err)
	}
	commitB, err := a.repo.repo.CommitObject(hashB)
	if err != nil {
		return "", fmt.Errorf("load commit %s: %w", refB, err)
	}
	bases, err := commitA.MergeBase(commitB)
	if err != nil {
		return "", fmt.Errorf("merge-base %s %s: %w", refA, refB, err)
	}
	if len(bases) == 0 {
		return "", fmt.Errorf("no merge base between %s and %s", refA, refB)
	}
	return bases[0].Hash.String(), nil
}

func (a *realAdapter) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	ancestorHash, err := a.repo.resolveRef(ancestor)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", ancestor, err)
	}
	descendantHash, err := a.repo.resolveRef(descendant)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", descendant, err)
	}
	if ancestorHash == descendantHash {
		return true, nil
	}
	ancestorCommit, err := a.repo.repo.CommitObject(ancestorHash)
	if err != nil {
		return false, fmt.Errorf("load commit %s: %w", ancestor, err)
	}
	descendantCommit, err := a.repo.repo.CommitObject(descendantHash)
	if err != nil {
		return false, fmt.Errorf("load commit %s: %w", descendant, err)
	}
	return ancestorCommit.IsAncestor(descendantCommit)
}

// RebaseOnto rebases branch's unique commits, defined as the range
// (oldBase, branch], onto newBase. It uses a detached-HEAD transplant so a
// currently checked-out branch can still be rewritten, then moves the
// branch ref to the result, avoiding "branch already checked out"
// failures.
func (a *realAdapter) RebaseOnto(ctx context.Context, branch, newBase, oldBase string) (RebaseResult, error) {
	currentBranch, curErr := a.CurrentBranch(ctx)
	var currentRev string
	if curErr != nil {
		currentRev, _ = a.runner.Run(ctx, "rev-parse", "HEAD")
	}

	branchRev, err := a.runner.Run(ctx, "rev-parse", branch)
	if err != nil {
		return RebaseConflict, fmt.Errorf("resolve %s: %w", branch, err)
	}

	if _, err := a.runner.Run(ctx, "rebase", "--onto", newBase, oldBase, branchRev); err != nil {
		if a.RebaseInProgress(ctx) {
			return RebaseConflict, nil
		}
		_, _ = a.runner.Run(ctx, "rebase", "--abort")
		a.restore(ctx, currentBranch, currentRev)
		return RebaseConflict, nil
	}

	newRev, err := a.runner.Run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return RebaseConflict, fmt.Errorf("read rebased HEAD: %w", err)
	}
	if err := a.UpdateRef(ctx, "refs/heads/"+branch, newRev); err != nil {
		return RebaseConflict, err
	}

	a.restore(ctx, currentBranch, currentRev)
	return RebaseDone, nil
}

func (a *realAdapter) restore(ctx context.Context, branch, rev string) {
	if branch != "" {
		if err := a.Checkout(ctx, branch); err == nil {
			return
		}
	}
	if rev != "" {
		_ = a.CheckoutDetached(ctx, rev)
	}
}

func (a *realAdapter) RebaseContinue(ctx context.Context) (RebaseResult, error) {
	if _, err := a.runner.Run(ctx, "-c", "core.editor=true", "rebase", "--continue"); err != nil {
		if a.RebaseInProgress(ctx) {
			return RebaseConflict, nil
		}
		return RebaseConflict, fmt.Errorf("rebase --continue: %w", err)
	}
	return RebaseDone, nil
}

func (a *realAdapter) RebaseAbort(ctx context.Context) error {
	_, err := a.runner.Run(ctx, "rebase", "--abort")
	return err
}

func (a *realAdapter) RebaseInProgress(ctx context.Context) bool {
	gitDir, err := a.runner.Run(ctx, "rev-parse", "--git-dir")
	if err != nil {
		return false
	}
	if _, err := os.Stat(gitDir + "/rebase-merge"); err == nil {
		return true
	}
	if _, err := os.Stat(gitDir + "/rebase-apply"); err == nil {
		return true
	}
	return false
}

func (a *realAdapter) Checkout(ctx context.Context, branch string) error {
	_, err := a.runner.Run(ctx, "checkout", branch)
	return err
}

func (a *realAdapter) CheckoutDetached(ctx context.Context, rev string) error {
	_, err := a.runner.Run(ctx, "checkout", "--detach", rev)
	return err
}

func (a *realAdapter) CurrentBranch(ctx context.Context) (string, error) {
	head, err := a.repo.repo.Head()
	if err != nil {
		return "", stkerrors.ErrNotOnBranch
	}
	if !head.Name().IsBranch() {
		return "", stkerrors.ErrNotOnBranch
	}
	return head.Name().Short(), nil
}

func (a *realAdapter) ListBranches(ctx context.Context) ([]string, error) {
	iter, err := a.repo.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	return names, err
}

func (a *realAdapter) DeleteBranch(ctx context.Context, branch string) error {
	_, err := a.runner.Run(ctx, "branch", "-D", branch)
	return err
}

func (a *realAdapter) RenameBranch(ctx context.Context, oldName, newName string) error {
	_, err := a.runner.Run(ctx, "branch", "-m", oldName, newName)
	return err
}

func (a *realAdapter) ReadRef(ctx context.Context, name string) (string, error) {
	ref, err := a.repo.repo.Reference(plumbing.ReferenceName(name), true)
	if err != nil {
		return "", fmt.Errorf("read ref %s: %w", name, err)
	}
	return ref.Hash().String(), nil
}

func (a *realAdapter) UpdateRef(ctx context.Context, name, sha string) error {
	_, err := a.runner.Run(ctx, "update-ref", name, sha)
	return err
}

func (a *realAdapter) DeleteRef(ctx context.Context, name string) error {
	return a.repo.repo.Storer.RemoveReference(plumbing.ReferenceName(name))
}

func (a *realAdapter) ListRefs(ctx context.Context, prefix string) (map[string]string, error) {
	refs, err := a.repo.repo.References()
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	result := make(map[string]string)
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().String()
		if strings.HasPrefix(name, prefix) {
			result[name] = ref.Hash().String()
		}
		return nil
	})
	return result, err
}

func (a *realAdapter) CreateBlob(ctx context.Context, content string) (string, error) {
	sha, err := a.runner.RunWithInput(ctx, content, "hash-object", "-w", "--stdin")
	if err != nil {
		return "", fmt.Errorf("create blob: %w", err)
	}
	return sha, nil
}

func (a *realAdapter) ReadBlob(ctx context.Context, sha string) (string, error) {
	obj, err := a.repo.repo.BlobObject(plumbing.NewHash(sha))
	if err != nil {
		return "", fmt.Errorf("read blob %s: %w", sha, err)
	}
	reader, err := obj.Reader()
	if err != nil {
		return "", err
	}
	defer func() { _ = reader.Close() }()
	content, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func (a *realAdapter) UncommittedChanges(ctx context.Context) (bool, error) {
	staged, err := a.runner.Run(ctx, "diff", "--cached", "--shortstat")
	if err != nil {
		return false, fmt.Errorf("check staged changes: %w", err)
	}
	if strings.TrimSpace(staged) != "" {
		return true, nil
	}
	unstaged, err := a.runner.Run(ctx, "diff", "--name-only")
	if err != nil {
		return false, fmt.Errorf("check unstaged changes: %w", err)
	}
	return strings.TrimSpace(unstaged) != "", nil
}

func (a *realAdapter) IsEmpty(ctx context.Context, branch, base string) (bool, error) {
	if _, err := a.runner.Run(ctx, "diff", "--quiet", base, branch); err != nil {
		return false, nil
	}
	return true, nil
}

func (a *realAdapter) PushBranch(ctx context.Context, branch, remote string, force bool) error {
	args := []string{"push", remote, branch}
	if force {
		args = append(args, "--force-with-lease")
	}
	_, err := a.runner.Run(ctx, args...)
	return err
}

func (a *realAdapter) GetRemote(ctx context.Context) string {
	if remote, err := a.runner.Run(ctx, "config", "--get", "checkout.defaultRemote"); err == nil && remote != "" {
		return remote
	}
	return "origin"
}

// RemoteURL returns the configured fetch URL for remote, as stored under
// remote.<name>.url.
func (a *realAdapter) RemoteURL(ctx context.Context, remote string) (string, error) {
	url, err := a.runner.Run(ctx, "config", "--get", "remote."+remote+".url")
	if err != nil {
		return "", fmt.Errorf("read remote %s url: %w", remote, err)
	}
	return strings.TrimSpace(url), nil
}
