package git

import (
	"os"
	"os/exec"
	"testing"
)

func initTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := exec.Command("git", "-C", dir, "init").Run(); err != nil {
		t.Skip("git not available")
	}
	exec.Command("git", "-C", dir, "config", "user.email", "test@example.com").Run()
	exec.Command("git", "-C", dir, "config", "user.name", "Test User").Run()
	if err := os.WriteFile(dir+"/test.txt", []byte("test"), 0644); err != nil {
		t.Fatal(err)
	}
	exec.Command("git", "-C", dir, "add", "test.txt").Run()
	exec.Command("git", "-C", dir, "commit", "-m", "Initial commit").Run()
	return dir
}

func TestDetectGitRepo(t *testing.T) {
	dir := initTestRepo(t)
	if err := DetectGitRepo(dir); err != nil {
		t.Errorf("DetectGitRepo() error = %v", err)
	}

	notRepo := t.TempDir()
	if err := DetectGitRepo(notRepo); err == nil {
		t.Error("expected error for non-git directory")
	}
}

func TestGetRemoteURL(t *testing.T) {
	dir := initTestRepo(t)

	url, err := GetRemoteURL(dir)
	if err != nil {
		t.Fatalf("GetRemoteURL() error = %v", err)
	}
	if url != "" {
		t.Errorf("expected empty URL with no remote configured, got %s", url)
	}

	testURL := "https://github.com/test/repo.git"
	if err := exec.Command("git", "-C", dir, "remote", "add", "origin", testURL).Run(); err != nil {
		t.Fatal(err)
	}
	url, err = GetRemoteURL(dir)
	if err != nil {
		t.Fatalf("GetRemoteURL() error = %v", err)
	}
	if url != testURL {
		t.Errorf("GetRemoteURL() = %s, want %s", url, testURL)
	}
}

func TestGetCurrentCommitSHA(t *testing.T) {
	dir := initTestRepo(t)

	sha, err := GetCurrentCommitSHA(dir)
	if err != nil {
		t.Fatalf("GetCurrentCommitSHA() error = %v", err)
	}
	if len(sha) != 40 {
		t.Errorf("expected a 40-character SHA, got %q", sha)
	}
}

func TestIdentify(t *testing.T) {
	dir := initTestRepo(t)
	exec.Command("git", "-C", dir, "remote", "add", "origin", "git@github.com:acme/widgets.git").Run()

	if got := Identify(dir); got != "acme/widgets" {
		t.Errorf("Identify() = %q, want %q", got, "acme/widgets")
	}
}

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantOrg  string
		wantRepo string
		wantErr  bool
	}{
		{
			name:     "HTTPS with .git",
			url:      "https://github.com/rohankatakam/coderisk.git",
			wantOrg:  "rohankatakam",
			wantRepo: "coderisk",
			wantErr:  false,
		},
		{
			name:     "HTTPS without .git",
			url:      "https://github.com/rohankatakam/coderisk",
			wantOrg:  "rohankatakam",
			wantRepo: "coderisk",
			wantErr:  false,
		},
		{
			name:     "HTTP with .git",
			url:      "http://github.com/rohankatakam/coderisk.git",
			wantOrg:  "rohankatakam",
			wantRepo: "coderisk",
			wantErr:  false,
		},
		{
			name:     "SSH format",
			url:      "git@github.com:coderisk/coderisk-go.git",
			wantOrg:  "coderisk",
			wantRepo: "coderisk-go",
			wantErr:  false,
		},
		{
			name:     "SSH without .git",
			url:      "git@github.com:coderisk/coderisk-go",
			wantOrg:  "coderisk",
			wantRepo: "coderisk-go",
			wantErr:  false,
		},
		{
			name:     "Git protocol",
			url:      "git://github.com/rohankatakam/coderisk.git",
			wantOrg:  "rohankatakam",
			wantRepo: "coderisk",
			wantErr:  false,
		},
		{
			name:     "GitLab HTTPS",
			url:      "https://gitlab.com/myorg/myrepo.git",
			wantOrg:  "myorg",
			wantRepo: "myrepo",
			wantErr:  false,
		},
		{
			name:     "GitLab SSH",
			url:      "git@gitlab.com:myorg/myrepo.git",
			wantOrg:  "myorg",
			wantRepo: "myrepo",
			wantErr:  false,
		},
		{
			name:     "Invalid URL",
			url:      "not-a-git-url",
			wantOrg:  "",
			wantRepo: "",
			wantErr:  true,
		},
		{
			name:     "Invalid format - no slash",
			url:      "https://github.com/onlyonepart",
			wantOrg:  "",
			wantRepo: "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			org, repo, err := ParseRepoURL(tt.url)

			if (err != nil) != tt.wantErr {
				t.Errorf("ParseRepoURL() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if org != tt.wantOrg {
				t.Errorf("ParseRepoURL() org = %v, want %v", org, tt.wantOrg)
			}

			if repo != tt.wantRepo {
				t.Errorf("ParseRepoURL() repo = %v, want %v", repo, tt.wantRepo)
			}
		})
	}
}
