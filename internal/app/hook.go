package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hoanghonghuy/commitbot/internal/gitx"
)

// InstallHook installs a prepare-commit-msg hook that runs commitbot --hook.
func InstallHook(ctx context.Context, repoArg string, out io.Writer) (string, error) {
	root, err := gitx.ResolveRepoRoot(ctx, repoArg)
	if err != nil {
		return "", err
	}
	gitDir, err := gitx.GitDir(ctx, root)
	if err != nil {
		return "", err
	}

	hooksDir := filepath.Join(gitDir, "hooks")
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		return "", fmt.Errorf("create hooks dir: %w", err)
	}

	hookPath := filepath.Join(hooksDir, "prepare-commit-msg")
	if _, err := os.Stat(hookPath); err == nil {
		return "", fmt.Errorf("hook %s already exists. Please remove it first", hookPath)
	}

	exe, err := os.Executable()
	if err != nil {
		exe = "commitbot"
	} else {
		exe, _ = filepath.Abs(exe)
	}

	if err := os.WriteFile(hookPath, []byte(hookScript(exe)), 0o755); err != nil {
		return "", fmt.Errorf("write hook file: %w", err)
	}

	fmt.Fprintf(out, "Hook installed to %s\n", hookPath)
	return hookPath, nil
}

func hookScript(exe string) string {
	return fmt.Sprintf(`#!/bin/sh
# commitbot hook
# $1 is the message file, $2 the message source, $3 the SHA.

COMMIT_MSG_FILE=$1
COMMIT_SOURCE=$2

# Messages given with -m, merges and squashes are left alone.
case "$COMMIT_SOURCE" in
  message|merge|squash) exit 0 ;;
esac

# The confirm prompt needs a terminal even inside a hook.
if [ -t 0 ]; then
    exec < /dev/tty
fi

echo "commitbot is analyzing changes..."
"%s" --hook "$COMMIT_MSG_FILE" < /dev/tty > /dev/tty
`, exe)
}
