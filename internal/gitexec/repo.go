package gitexec

import (
	"fmt"
	"os"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// repoHandle wraps the go-git repository used for read-only ref queries
// (merge-base, ancestry, ref listing) that don't need a git subprocess.
type repoHandle struct {
	repo *gogit.Repository
	root string
}

func openRepo(dir string) (*repoHandle, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		dir = wd
	}

	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("get worktree: %w", err)
	}

	return &repoHandle{repo: repo, root: wt.Filesystem.Root()}, nil
}

func (h *repoHandle) resolveRef(name string) (plumbing.Hash, error) {
	ref, err := h.repo.Reference(plumbing.ReferenceName(name), true)
	if err == nil {
		return ref.Hash(), nil
	}
	// Fall back to treating name as a branch short name or a raw SHA.
	hash, err2 := h.repo.ResolveRevision(plumbing.Revision(name))
	if err2 != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve %q: %w", name, err)
	}
	return *hash, nil
}

// Root returns the repository's working-tree root directory.
func (h *repoHandle) Root() string { return h.root }
