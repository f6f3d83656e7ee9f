// Package gitx wraps the git command line.
package gitx

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Git runs git in repoRoot and returns stdout. An empty repoRoot runs in the current directory.
func Git(ctx context.Context, repoRoot string, args ...string) (string, error) {
	full := args
	if repoRoot != "" {
		full = append([]string{"-C", repoRoot}, args...)
	}
	cmd := exec.CommandContext(ctx, "git", full...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %v failed: %w\n%s", args, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func CurrentBranch(ctx context.Context, repoRoot string) (string, error) {
	out, err := Git(ctx, repoRoot, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func GitConfig(ctx context.Context, repoRoot, key string) (string, error) {
	out, err := Git(ctx, repoRoot, "config", "--get", key)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// StagedDiff returns the diff of everything in the index.
func StagedDiff(ctx context.Context, repoRoot string) (string, error) {
	return Git(ctx, repoRoot, "diff", "--cached")
}

// StagedFiles lists the paths in the index that differ from HEAD.
func StagedFiles(ctx context.Context, repoRoot string) ([]string, error) {
	out, err := Git(ctx, repoRoot, "diff", "--cached", "--name-only")
	if err != nil {
		return nil, err
	}
	return splitNonEmptyLines(out), nil
}

func StagedDiffForFile(ctx context.Context, repoRoot, path string) (string, error) {
	return Git(ctx, repoRoot, "diff", "--cached", "--", path)
}

// StageAll stages new, modified and deleted files.
func StageAll(ctx context.Context, repoRoot string) error {
	_, err := Git(ctx, repoRoot, "add", "-A")
	return err
}

// GitDir returns the repository's git directory, absolute.
func GitDir(ctx context.Context, repoRoot string) (string, error) {
	out, err := Git(ctx, repoRoot, "rev-parse", "--git-dir")
	if err != nil {
		return "", err
	}
	dir := strings.TrimSpace(out)
	if !filepath.IsAbs(dir) {
		base := repoRoot
		if base == "" {
			if base, err = os.Getwd(); err != nil {
				return "", err
			}
		}
		dir = filepath.Join(base, dir)
	}
	return dir, nil
}

// WriteCommitEditMsg stores message in COMMIT_EDITMSG so the next
// `git commit` offers it in the editor.
func WriteCommitEditMsg(ctx context.Context, repoRoot, message string) (string, error) {
	dir, err := GitDir(ctx, repoRoot)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "COMMIT_EDITMSG")
	if err := os.WriteFile(path, []byte(message), 0o644); err != nil {
		return "", fmt.Errorf("write commit message to %s: %w", path, err)
	}
	return path, nil
}

func splitNonEmptyLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var out []string
	for _, ln := range strings.Split(s, "\n") {
		ln = strings.TrimSpace(ln)
		if ln != "" {
			out = append(out, ln)
		}
	}
	return out
}
