package git

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// fallbackScript is a minimal re-exec wrapper deployed when the canonical
// git binary cannot be resolved from PATH, per SPEC_FULL.md §4.6's
// "Fallback script deployment". It searches a short list of common
// install locations and execs whichever it finds, so callers that already
// hold a gitPath keep working unmodified.
const fallbackScript = `#!/bin/sh
for candidate in /usr/bin/git /usr/local/bin/git /opt/homebrew/bin/git; do
  if [ -x "$candidate" ]; then
    exec "$candidate" "$@"
  fi
done
echo "git: no usable git binary found" >&2
exit 127
`

// deployFallbackScript writes fallbackScript into a temp directory and
// returns its path, executable. Used by NewGitWithFallback when NewGit
// fails, so callers still get a working gitPath rather than a hard error.
func deployFallbackScript() (string, error) {
	dir, err := os.MkdirTemp("", "agentcore-git-fallback-*")
	if err != nil {
		return "", fmt.Errorf("git: deploy fallback script: %w", err)
	}
	path := filepath.Join(dir, "git")
	if err := os.WriteFile(path, []byte(fallbackScript), 0o755); err != nil {
		return "", fmt.Errorf("git: write fallback script: %w", err)
	}
	return path, nil
}

// NewGitWithFallback behaves like NewGit but, if the git binary cannot be
// resolved from PATH, deploys and uses the fallback script instead of
// failing outright. If the fallback script itself finds no candidate git
// binary either (none of /usr/bin/git, /usr/local/bin/git,
// /opt/homebrew/bin/git are executable), it still returns a *Git, but one
// whose read-only operations route through the in-process PureGoReader
// (SPEC_FULL.md §6b) rather than failing the whole session over a missing
// CLI.
func NewGitWithFallback(ctx context.Context) (*Git, error) {
	g, err := NewGit(ctx)
	if err == nil {
		return g, nil
	}

	path, fbErr := deployFallbackScript()
	if fbErr != nil {
		return nil, fmt.Errorf("git unavailable and fallback failed: %w (original: %v)", fbErr, err)
	}

	cmd := exec.CommandContext(ctx, path, "version")
	if runErr := cmd.Run(); runErr != nil {
		return &Git{pureGo: true}, nil
	}

	return &Git{gitPath: path}, nil
}
