// Package config provides repository- and user-level configuration, plus
// the on-disk continuation state a conflicted restack leaves behind.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ReviewHostKind names the review-host integration a repo is configured
// for. Only github is implemented (see internal/reviewhost), but the kind
// is modeled as data so a second host would not require the stack engine
// to branch on it.
type ReviewHostKind string

const (
	ReviewHostGitHub ReviewHostKind = "github"
)

// RepoConfig is the repository-level configuration: trunk branch list, repo
// owner/name, review host kind and hostname.
type RepoConfig struct {
	Trunks     []string       `json:"trunks,omitempty"`
	Owner      string         `json:"owner,omitempty"`
	Name       string         `json:"name,omitempty"`
	ReviewHost ReviewHostKind `json:"reviewHost,omitempty"`
	Hostname   string         `json:"hostname,omitempty"`
}

const repoConfigFile = ".stacker_config"

func repoConfigPath(repoRoot string) string {
	return filepath.Join(repoRoot, ".git", repoConfigFile)
}

// LoadRepoConfig reads the repo config, returning a zero-value config (not
// an error) if the file does not exist yet.
func LoadRepoConfig(repoRoot string) (*RepoConfig, error) {
	data, err := os.ReadFile(repoConfigPath(repoRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return &RepoConfig{}, nil
		}
		return nil, fmt.Errorf("read repo config: %w", err)
	}
	var cfg RepoConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse repo config: %w", err)
	}
	return &cfg, nil
}

// SaveRepoConfig persists the repo config.
func SaveRepoConfig(repoRoot string, cfg *RepoConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal repo config: %w", err)
	}
	return os.WriteFile(repoConfigPath(repoRoot), data, 0o600)
}

// IsTrunk reports whether branchName is configured as a trunk. Defaults to
// treating "main" as trunk when no config exists yet.
func (c *RepoConfig) IsTrunk(branchName string) bool {
	trunks := c.Trunks
	if len(trunks) == 0 {
		trunks = []string{"main"}
	}
	for _, t := range trunks {
		if t == branchName {
			return true
		}
	}
	return false
}

// PrimaryTrunk returns the first configured trunk, defaulting to "main".
func (c *RepoConfig) PrimaryTrunk() string {
	if len(c.Trunks) > 0 {
		return c.Trunks[0]
	}
	return "main"
}

// IsInitialized reports whether the repo has been configured at all.
func IsInitialized(repoRoot string) bool {
	_, err := os.Stat(repoConfigPath(repoRoot))
	return err == nil
}
