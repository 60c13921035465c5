// Package git provides the small amount of repository introspection the
// CLI needs beyond the commit stream itself: detecting that a path is a
// working tree and resolving its canonical "repo" identity for
// summary.json's Summary.Repo field (Params.RepoPath carries the
// configured path unchanged).
package git

import (
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// DetectGitRepo verifies dir is inside a git working tree.
func DetectGitRepo(dir string) error {
	cmd := exec.Command("git", "-C", dir, "rev-parse", "--is-inside-work-tree")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("not a git repository: %w", err)
	}
	return nil
}

// ParseRepoURL extracts org and repo name from a git remote URL.
// Supports HTTPS, SSH, and git:// forms.
func ParseRepoURL(remoteURL string) (org, repo string, err error) {
	remoteURL = strings.TrimSuffix(remoteURL, ".git")

	httpsRegex := regexp.MustCompile(`https?://[^/]+/([^/]+)/([^/]+)`)
	if matches := httpsRegex.FindStringSubmatch(remoteURL); len(matches) == 3 {
		return matches[1], matches[2], nil
	}

	sshRegex := regexp.MustCompile(`git@[^:]+:([^/]+)/([^/]+)`)
	if matches := sshRegex.FindStringSubmatch(remoteURL); len(matches) == 3 {
		return matches[1], matches[2], nil
	}

	gitRegex := regexp.MustCompile(`git://[^/]+/([^/]+)/([^/]+)`)
	if matches := gitRegex.FindStringSubmatch(remoteURL); len(matches) == 3 {
		return matches[1], matches[2], nil
	}

	return "", "", fmt.Errorf("unrecognized git URL format: %s", remoteURL)
}

// GetRemoteURL returns dir's "origin" remote URL, or "" if unset.
func GetRemoteURL(dir string) (string, error) {
	cmd := exec.Command("git", "-C", dir, "config", "--get", "remote.origin.url")
	output, err := cmd.Output()
	if err != nil {
		return "", nil
	}
	return strings.TrimSpace(string(output)), nil
}

// GetCurrentCommitSHA returns dir's current HEAD commit SHA.
func GetCurrentCommitSHA(dir string) (string, error) {
	cmd := exec.Command("git", "-C", dir, "rev-parse", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// Identify resolves dir's display repo name: "org/repo" parsed from its
// remote URL when available, else the directory's base name.
func Identify(dir string) string {
	remote, err := GetRemoteURL(dir)
	if err == nil && remote != "" {
		if org, repo, err := ParseRepoURL(remote); err == nil {
			return org + "/" + repo
		}
	}
	return baseName(dir)
}

func baseName(dir string) string {
	dir = strings.TrimRight(dir, "/")
	if i := strings.LastIndex(dir, "/"); i >= 0 {
		return dir[i+1:]
	}
	return dir
}
