package runtime

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// SandboxHandle carries the isolated working directory a Local Runtime
// executes actions in: a dedicated git worktree plus branch, so a
// delegate's filesystem/shell actions never collide with the parent's
// (SPEC_FULL.md §3a).
type SandboxHandle struct {
	WorktreePath string
	Branch       string
	ParentRepo   string
	CreatedAt    time.Time
	CleanedAt    *time.Time
}

// CreateSandbox carves out a fresh worktree+branch off parentRepo's
// baseBranch, rooted under sandboxRoot. Grounded on the teacher's
// internal/sandbox/manager.go Create/createWorktree/createBranch, adapted
// away from the beads-database/deduplication machinery that package ties
// sandboxes to: this domain has no issue tracker, so SandboxHandle carries
// only the filesystem/git identity a Runtime needs.
func CreateSandbox(ctx context.Context, sessionID, parentRepo, sandboxRoot, baseBranch string) (*SandboxHandle, error) {
	if baseBranch == "" {
		baseBranch = "main"
	}
	if err := validateGitRepo(parentRepo); err != nil {
		return nil, fmt.Errorf("runtime: parent repo validation failed: %w", err)
	}
	if err := os.MkdirAll(sandboxRoot, 0o755); err != nil {
		return nil, fmt.Errorf("runtime: create sandbox root: %w", err)
	}

	suffix := uuid.New().String()[:8]
	worktreePath, err := filepath.Abs(filepath.Join(sandboxRoot, fmt.Sprintf("session-%s-%s", sessionID, suffix)))
	if err != nil {
		return nil, fmt.Errorf("runtime: resolve worktree path: %w", err)
	}
	if _, statErr := os.Stat(worktreePath); statErr == nil {
		return nil, fmt.Errorf("runtime: worktree path already exists: %s", worktreePath)
	}

	branch := fmt.Sprintf("agentcore/%s/%s", sessionID, suffix)

	addCmd := exec.CommandContext(ctx, "git", "worktree", "add", "-b", branch, worktreePath, baseBranch)
	addCmd.Dir = parentRepo
	if out, runErr := addCmd.CombinedOutput(); runErr != nil {
		_ = os.RemoveAll(worktreePath)
		return nil, fmt.Errorf("runtime: git worktree add failed: %w (output: %s)", runErr, out)
	}

	return &SandboxHandle{
		WorktreePath: worktreePath,
		Branch:       branch,
		ParentRepo:   parentRepo,
		CreatedAt:    time.Now(),
	}, nil
}

// Cleanup removes the worktree and, if keepBranch is false, the branch
// it carried. Idempotent: a missing worktree path is not an error.
// Grounded on internal/sandbox/git.go's removeWorktree.
func (h *SandboxHandle) Cleanup(ctx context.Context, keepBranch bool) error {
	if _, err := os.Stat(h.WorktreePath); os.IsNotExist(err) {
		now := time.Now()
		h.CleanedAt = &now
		return nil
	}

	rmCmd := exec.CommandContext(ctx, "git", "worktree", "remove", h.WorktreePath, "--force")
	if h.ParentRepo != "" {
		rmCmd.Dir = h.ParentRepo
	}
	if out, err := rmCmd.CombinedOutput(); err != nil {
		return fmt.Errorf("runtime: git worktree remove failed: %w (output: %s)", err, out)
	}

	if !keepBranch && h.ParentRepo != "" {
		delCmd := exec.CommandContext(ctx, "git", "branch", "-D", h.Branch)
		delCmd.Dir = h.ParentRepo
		_ = delCmd.Run() // best-effort; a branch merged or never checked out isn't fatal
	}

	now := time.Now()
	h.CleanedAt = &now
	return nil
}

func validateGitRepo(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %s", path)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}
	if _, err := os.Stat(filepath.Join(path, ".git")); err != nil {
		return fmt.Errorf("not a git repository: %s", path)
	}
	return nil
}
