// Package runtime provides the execution context shared by CLI commands,
// so they don't each wire up the Git adapter, meta store, review host, and
// logger independently.
package runtime

import (
	"context"
	"fmt"

	"stacker.dev/stacker/internal/cliprompt"
	"stacker.dev/stacker/internal/config"
	"stacker.dev/stacker/internal/gitexec"
	"stacker.dev/stacker/internal/logging"
	"stacker.dev/stacker/internal/meta"
	"stacker.dev/stacker/internal/reviewhost"
)

// Context holds every collaborator a CLI command needs, built once at
// startup and passed down instead of recreated per command.
type Context struct {
	RepoRoot   string
	RepoConfig *config.RepoConfig
	UserConfig *config.UserConfig
	Adapter    gitexec.Adapter
	Store      meta.Store
	Host       reviewhost.Host // nil until a review host can be constructed
	Prompter   cliprompt.Prompter
	Splog      *logging.Splog
}

// New opens the repository rooted at repoRoot (or the process cwd if
// empty), loads repo/user config, and wires the meta store and logger. The
// review host is left nil. Callers that need it call EnsureHost once a
// token is available.
func New(repoRoot string) (*Context, error) {
	adapter, err := gitexec.NewAdapter(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	root := adapter.RepoRoot()

	repoCfg, err := config.LoadRepoConfig(root)
	if err != nil {
		return nil, fmt.Errorf("load repo config: %w", err)
	}
	userCfg, err := config.LoadUserConfig()
	if err != nil {
		return nil, fmt.Errorf("load user config: %w", err)
	}

	return &Context{
		RepoRoot:   root,
		RepoConfig: repoCfg,
		UserConfig: userCfg,
		Adapter:    adapter,
		Store:      meta.NewStore(adapter),
		Prompter:   cliprompt.SurveyPrompter{},
		Splog:      logging.New(),
	}, nil
}

// EnsureHost constructs the review host from RepoConfig/UserConfig if it
// hasn't been built yet. Commands that don't talk to a review host never
// pay for this.
func (c *Context) EnsureHost(ctx context.Context) error {
	if c.Host != nil {
		return nil
	}
	if c.UserConfig.AuthToken == "" {
		return fmt.Errorf("no auth token configured; set authToken in stacker's user config.json")
	}
	if c.RepoConfig.Owner == "" || c.RepoConfig.Name == "" {
		return fmt.Errorf("repository not initialized; run 'stacker init' first")
	}

	switch c.RepoConfig.ReviewHost {
	case config.ReviewHostGitHub, "":
		host, err := reviewhost.NewGitHubHost(ctx, c.RepoConfig.Hostname, c.UserConfig.AuthToken, c.RepoConfig.Owner, c.RepoConfig.Name, c.UserConfig.AppServerURL)
		if err != nil {
			return fmt.Errorf("create GitHub client: %w", err)
		}
		c.Host = host
		return nil
	default:
		return fmt.Errorf("unsupported review host %q", c.RepoConfig.ReviewHost)
	}
}

// Trunks returns the configured trunk branches, defaulting to ["main"].
func (c *Context) Trunks() []string {
	if len(c.RepoConfig.Trunks) > 0 {
		return c.RepoConfig.Trunks
	}
	return []string{"main"}
}
