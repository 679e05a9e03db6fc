package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"stacker.dev/stacker/internal/config"
	"stacker.dev/stacker/internal/reviewhost"
)

// newInitCmd creates the init command.
func newInitCmd() *cobra.Command {
	var trunk string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Configure stacker for the current repository",
		Long: `Configure stacker for the current repository: records the trunk branch
and, when an "origin" remote is present, the review host owner and
repository name parsed from its URL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := openContext()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			trunkName := trunk
			if trunkName == "" {
				trunkName = rc.RepoConfig.PrimaryTrunk()
			}
			if _, err := rc.Adapter.ReadRef(ctx, "refs/heads/"+trunkName); err != nil {
				return fmt.Errorf("branch %q not found", trunkName)
			}

			cfg := rc.RepoConfig
			cfg.Trunks = []string{trunkName}
			cfg.ReviewHost = config.ReviewHostGitHub

			remote := rc.Adapter.GetRemote(ctx)
			if url, err := rc.Adapter.RemoteURL(ctx, remote); err == nil {
				if info, err := reviewhost.ParseRemoteURL(url); err == nil {
					cfg.Owner = info.Owner
					cfg.Name = info.Repo
					cfg.Hostname = info.Hostname
				} else {
					rc.Splog.Warn("could not parse remote %q as a review-host URL: %v", remote, err)
				}
			}

			if err := config.SaveRepoConfig(rc.RepoRoot, cfg); err != nil {
				return fmt.Errorf("save repo config: %w", err)
			}

			rc.Splog.Info("stacker initialized with trunk %s", trunkName)
			if cfg.Owner != "" {
				rc.Splog.Info("review host set to %s/%s", cfg.Owner, cfg.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&trunk, "trunk", "", "the trunk branch name (defaults to main)")
	return cmd
}
