// Package devctx derives a stable identity for a development context.
//
// A context is one project/branch combination. Git repositories hash the
// origin remote plus the current branch, so the identity survives moving
// the checkout; everything else hashes the absolute path.
package devctx

import (
	"context"
	"crypto/md5"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const gitTimeout = 5 * time.Second

// Context identifies one development project/branch
type Context struct {
	Hash   string // 12-char hash of the identity
	Path   string // absolute path
	Label  string // human-readable label
	Remote string // git remote URL, "" if not a git repo
	Branch string // git branch name, "" if not a git repo
}

// Detect derives the context for the given directory. An empty path means
// the current working directory.
func Detect(path string) (*Context, error) {
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		path = wd
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	remote := gitRemote(abs)
	branch := gitBranch(abs)

	var identity, label string
	if remote != "" && branch != "" {
		// Git identity is stable across moves of the checkout
		identity = remote + ":" + branch
		label = RepoName(remote) + "/" + branch
	} else {
		identity = abs
		label = filepath.Base(abs)
	}

	return &Context{
		Hash:   hashIdentity(identity),
		Path:   abs,
		Label:  label,
		Remote: remote,
		Branch: branch,
	}, nil
}

// hashIdentity returns the first 12 hex chars of the identity's MD5.
// Not a security boundary, just a compact stable key.
func hashIdentity(identity string) string {
	sum := md5.Sum([]byte(identity))
	return fmt.Sprintf("%x", sum)[:12]
}

// gitRemote returns the URL of the origin remote, or "" if the directory is
// not a git repository or has no origin
func gitRemote(dir string) string {
	out, err := runGit(dir, "remote", "get-url", "origin")
	if err != nil {
		return ""
	}
	return out
}

// gitBranch returns the current branch name. A detached HEAD falls back to
// the worktree directory name.
func gitBranch(dir string) string {
	out, err := runGit(dir, "branch", "--show-current")
	if err == nil && out != "" {
		return out
	}

	out, err = runGit(dir, "rev-parse", "--show-toplevel")
	if err == nil && out != "" {
		return filepath.Base(out)
	}

	return ""
}

func runGit(dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// RepoName extracts the repository name from a remote URL.
//
//	git@github.com:user/repo.git  -> repo
//	https://github.com/user/repo  -> repo
func RepoName(remoteURL string) string {
	name := strings.TrimRight(remoteURL, "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.TrimSuffix(name, ".git")
}
