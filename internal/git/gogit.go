package git

import (
	"fmt"
	"io"

	gogit "github.com/go-git/go-git/v5"
)

// PureGoReader is an alternate, in-process Git Handler path used when the
// git binary is unavailable. It complements, not replaces, Git's
// exec.Command-based implementation: it only covers the read-only
// status/diff operations that are safe to serve from a pure-Go worktree
// read, per SPEC_FULL.md §6b's go-git/v5 wiring. Commit/push/rebase stay
// on the git CLI for parity with the teacher's tested behavior.
type PureGoReader struct {
	repoPath string
}

// NewPureGoReader opens repoPath as a go-git repository.
func NewPureGoReader(repoPath string) (*PureGoReader, error) {
	if _, err := gogit.PlainOpen(repoPath); err != nil {
		return nil, fmt.Errorf("gogit: open %s: %w", repoPath, err)
	}
	return &PureGoReader{repoPath: repoPath}, nil
}

// GetGitChanges is go-git's read-only analogue of Git.GetGitChanges: a
// worktree status diffed against HEAD. It does not implement merge-base
// baseline selection (go-git's merge-base support is narrower than the
// CLI's); callers needing that fall back to Git.GetGitChanges.
func (r *PureGoReader) GetGitChanges() ([]ChangedFile, error) {
	repo, err := gogit.PlainOpen(r.repoPath)
	if err != nil {
		return nil, fmt.Errorf("gogit: open %s: %w", r.repoPath, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("gogit: worktree: %w", err)
	}
	st, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("gogit: status: %w", err)
	}

	var out []ChangedFile
	for path, fileStatus := range st {
		out = append(out, ChangedFile{Status: pureGoStatusLetter(fileStatus.Worktree), Path: path})
	}
	return out, nil
}

func pureGoStatusLetter(code gogit.StatusCode) string {
	switch code {
	case gogit.Added, gogit.Untracked:
		return "A"
	case gogit.Modified:
		return "M"
	case gogit.Deleted:
		return "D"
	case gogit.Renamed:
		return "R"
	case gogit.Copied:
		return "C"
	case gogit.UpdatedButUnmerged:
		return "U"
	default:
		return "M"
	}
}

// GetGitDiff is go-git's read-only analogue of Git.GetGitDiff: the HEAD
// blob content for relativeFilePath versus the current working-tree file.
func (r *PureGoReader) GetGitDiff(relativeFilePath string) (*GitDiff, error) {
	repo, err := gogit.PlainOpen(r.repoPath)
	if err != nil {
		return nil, fmt.Errorf("gogit: open %s: %w", r.repoPath, err)
	}

	original := ""
	if head, err := repo.Head(); err == nil {
		if commit, err := repo.CommitObject(head.Hash()); err == nil {
			if tree, err := commit.Tree(); err == nil {
				if entry, err := tree.File(relativeFilePath); err == nil {
					original, _ = entry.Contents()
				}
			}
		}
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("gogit: worktree: %w", err)
	}
	modified := ""
	if f, err := wt.Filesystem.Open(relativeFilePath); err == nil {
		defer f.Close()
		if data, err := io.ReadAll(f); err == nil {
			modified = string(data)
		}
	}

	return &GitDiff{Original: original, Modified: modified}, nil
}
