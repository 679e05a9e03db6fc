package reviewhost

import (
	"fmt"
	"strings"
)

// RemoteInfo is the parsed hostname/owner/repo from a Git remote URL.
type RemoteInfo struct {
	Hostname string
	Owner    string
	Repo     string
}

// ParseRemoteURL extracts hostname, owner, and repo from a GitHub remote
// URL, accepting both SSH (git@host:owner/repo.git) and HTTPS
// (https://host/owner/repo.git) forms, including GitHub Enterprise hosts.
func ParseRemoteURL(remoteURL string) (*RemoteInfo, error) {
	remoteURL = strings.TrimSpace(remoteURL)
	remoteURL = strings.TrimSuffix(remoteURL, ".git")

	var hostname, owner, repo string

	if strings.Contains(remoteURL, "@") {
		parts := strings.SplitN(remoteURL, "@", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid SSH remote URL %q", remoteURL)
		}
		hostAndPath := parts[1]

		var path string
		if strings.Contains(hostAndPath, ":") {
			hostPathParts := strings.SplitN(hostAndPath, ":", 2)
			hostname, path = hostPathParts[0], hostPathParts[1]
		} else {
			pathParts := strings.SplitN(hostAndPath, "/", 2)
			if len(pathParts) < 2 {
				return nil, fmt.Errorf("invalid SSH remote URL %q: missing path", remoteURL)
			}
			hostname, path = pathParts[0], pathParts[1]
		}

		pathParts := strings.Split(path, "/")
		if len(pathParts) < 2 {
			return nil, fmt.Errorf("invalid SSH remote URL %q: path must be owner/repo", remoteURL)
		}
		owner = pathParts[0]
		repo = pathParts[len(pathParts)-1]
	} else {
		trimmed := strings.TrimPrefix(strings.TrimPrefix(remoteURL, "https://"), "http://")
		parts := strings.Split(trimmed, "/")
		if len(parts) < 3 {
			return nil, fmt.Errorf("invalid remote URL %q: must be protocol://host/owner/repo", remoteURL)
		}
		hostname = parts[0]
		owner = parts[len(parts)-2]
		repo = parts[len(parts)-1]
	}

	if hostname == "" || owner == "" || repo == "" {
		return nil, fmt.Errorf("could not parse hostname, owner, or repo from %q", remoteURL)
	}
	return &RemoteInfo{Hostname: hostname, Owner: owner, Repo: repo}, nil
}
