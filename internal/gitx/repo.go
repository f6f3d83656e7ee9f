package gitx

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

func ResolveRepoRoot(ctx context.Context, repoArg string) (string, error) {
	if strings.TrimSpace(repoArg) != "" {
		p, err := filepath.Abs(repoArg)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(p); err != nil {
			return "", err
		}
		// If user points to subdir, normalize by asking git
		root, err := Git(ctx, p, "rev-parse", "--show-toplevel")
		if err == nil {
			return strings.TrimSpace(root), nil
		}
		return p, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	root, err := Git(ctx, cwd, "rev-parse", "--show-toplevel")
	if err == nil {
		return strings.TrimSpace(root), nil
	}
	return "", errors.New("not inside a git repository")
}

// DetectRepoID derives "owner/repo" from remote.origin.url.
func DetectRepoID(ctx context.Context, repoRoot string) (string, bool) {
	url, err := GitConfig(ctx, repoRoot, "remote.origin.url")
	if err != nil {
		return "", false
	}
	return parseRepoID(url)
}

// parseRepoID handles git@host:owner/repo(.git) and scheme://host/owner/repo(.git).
func parseRepoID(url string) (string, bool) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(url), ".git")

	path := trimmed
	if idx := strings.Index(trimmed, "://"); idx >= 0 {
		rest := trimmed[idx+3:]
		if slash := strings.IndexByte(rest, '/'); slash >= 0 {
			path = rest[slash+1:]
		} else {
			path = rest
		}
	} else if idx := strings.IndexByte(trimmed, ':'); idx >= 0 {
		path = trimmed[idx+1:]
	}

	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) < 2 {
		return "", false
	}
	return segs[len(segs)-2] + "/" + segs[len(segs)-1], true
}

func RepoNameFromRoot(repoRoot string) string {
	return filepath.Base(repoRoot)
}
