package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ContinuationState is the resumable state a conflicted restack traversal
// leaves behind: a crash mid-traversal can leave prevRef updated but the
// rebase unfinished, so the user resolves the conflict with Git tooling and
// reruns restack. It records which branches still need restacking once the
// user runs `stacker continue`.
type ContinuationState struct {
	BranchesToRestack []string `json:"branchesToRestack,omitempty"`
	// ConflictedBranch is the branch whose rebase --onto is still in
	// progress; "stacker continue" finishes rewriting it before resuming
	// BranchesToRestack.
	ConflictedBranch string `json:"conflictedBranch,omitempty"`
	// ConflictedBranchOldTip is ConflictedBranch's tip before the
	// interrupted rebase, recorded as its PrevRef once the rebase
	// completes.
	ConflictedBranchOldTip string `json:"conflictedBranchOldTip,omitempty"`
}

const continuationFile = ".stacker_continue"

func continuationPath(repoRoot string) string {
	return filepath.Join(repoRoot, ".git", continuationFile)
}

// LoadContinuationState reads the persisted continuation, or nil if none is
// pending.
func LoadContinuationState(repoRoot string) (*ContinuationState, error) {
	data, err := os.ReadFile(continuationPath(repoRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read continuation state: %w", err)
	}
	var state ContinuationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse continuation state: %w", err)
	}
	return &state, nil
}

// SaveContinuationState persists the continuation state.
func SaveContinuationState(repoRoot string, state *ContinuationState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal continuation state: %w", err)
	}
	return os.WriteFile(continuationPath(repoRoot), data, 0o600)
}

// ClearContinuationState removes the continuation file after a successful
// resume.
func ClearContinuationState(repoRoot string) error {
	if err := os.Remove(continuationPath(repoRoot)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear continuation state: %w", err)
	}
	return nil
}
