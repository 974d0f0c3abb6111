package runtime

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/agentcore/agentcore/internal/events"
)

// resolvePath joins root and path, rejecting any result that escapes root
// (a "../../etc/passwd"-style traversal). Glob metacharacters in path are
// not checked; they are treated as ordinary characters. Grounded on the FileStore adapters' own path-traversal
// guard (internal/filestore's DiskStore), generalized here to the
// Runtime's workspace root instead of a store root.
func resolvePath(root, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("runtime: empty path")
	}
	clean := filepath.Clean(path)
	full := filepath.Join(root, clean)
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("runtime: path %q escapes sandbox root", path)
	}
	return full, nil
}

// readFile executes a FileReadAction against root, returning the
// requested content (optionally sliced to ViewRange, 1-indexed inclusive,
// end=-1 meaning to the end of the file).
func readFile(root string, a *events.FileReadAction) (*events.FileReadObservation, error) {
	full, err := resolvePath(root, a.Path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("runtime: read %s: %w", a.Path, err)
	}

	content := string(data)
	if a.ViewRange != nil {
		lines := strings.Split(content, "\n")
		start := a.ViewRange.Start
		end := a.ViewRange.End
		if start < 1 {
			start = 1
		}
		if end == -1 || end > len(lines) {
			end = len(lines)
		}
		if start > len(lines) {
			return &events.FileReadObservation{Path: a.Path, Content: ""}, nil
		}
		content = strings.Join(lines[start-1:end], "\n")
	}

	return &events.FileReadObservation{Path: a.Path, Content: content}, nil
}

// editFile executes a FileEditAction against root. When Content is set,
// the file is fully overwritten (created, with parent directories, if it
// does not exist). Otherwise Command selects an ACI-style structured
// edit: str_replace (old_str -> new_str, exactly one match required) or
// insert (file_text inserted after InsertLine). Grounded on the
// str_replace/insert editor contract in
// original_source/openhands/agenthub/codeact_agent/function_calling.py,
// reimplemented directly against the filesystem rather than shelling out.
func editFile(root string, a *events.FileEditAction) (*events.FileEditObservation, error) {
	full, err := resolvePath(root, a.Path)
	if err != nil {
		return nil, err
	}

	if a.Content != nil {
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return nil, fmt.Errorf("runtime: create parent dirs for %s: %w", a.Path, err)
		}
		if err := os.WriteFile(full, []byte(*a.Content), 0o644); err != nil {
			return nil, fmt.Errorf("runtime: write %s: %w", a.Path, err)
		}
		return &events.FileEditObservation{Path: a.Path, Content: *a.Content}, nil
	}

	switch a.Command {
	case "", "str_replace":
		return strReplace(full, a)
	case "insert":
		return insertAt(full, a)
	default:
		return nil, fmt.Errorf("runtime: unsupported edit command %q", a.Command)
	}
}

func strReplace(full string, a *events.FileEditAction) (*events.FileEditObservation, error) {
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("runtime: read %s for edit: %w", a.Path, err)
	}
	content := string(data)

	count := strings.Count(content, a.OldStr)
	switch count {
	case 0:
		return nil, fmt.Errorf("runtime: old_str not found in %s", a.Path)
	case 1:
		// exact match, proceed
	default:
		return nil, fmt.Errorf("runtime: old_str matches %d times in %s, must be unique", count, a.Path)
	}

	updated := strings.Replace(content, a.OldStr, a.NewStr, 1)
	if err := os.WriteFile(full, []byte(updated), 0o644); err != nil {
		return nil, fmt.Errorf("runtime: write %s: %w", a.Path, err)
	}

	diff := fmt.Sprintf("-%s\n+%s", a.OldStr, a.NewStr)
	return &events.FileEditObservation{Path: a.Path, Diff: diff, Content: updated}, nil
}

func insertAt(full string, a *events.FileEditAction) (*events.FileEditObservation, error) {
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("runtime: read %s for edit: %w", a.Path, err)
	}
	lines := strings.Split(string(data), "\n")

	line := 0
	if a.InsertLine != nil {
		line = *a.InsertLine
	}
	if line < 0 || line > len(lines) {
		return nil, fmt.Errorf("runtime: insert_line %d out of range for %s (%d lines)", line, a.Path, len(lines))
	}

	inserted := append([]string{}, lines[:line]...)
	inserted = append(inserted, a.FileText)
	inserted = append(inserted, lines[line:]...)
	updated := strings.Join(inserted, "\n")

	if err := os.WriteFile(full, []byte(updated), 0o644); err != nil {
		return nil, fmt.Errorf("runtime: write %s: %w", a.Path, err)
	}
	return &events.FileEditObservation{Path: a.Path, Diff: fmt.Sprintf("+%s", a.FileText), Content: updated}, nil
}

// matchesAnyGlob reports whether rel matches one of the given doublestar
// glob patterns, used to gate FileRead/FileEdit against an optional
// allowlist (SPEC_FULL.md §6b names doublestar for this validation role
// alongside the Git Handler's nested-repo discovery).
func matchesAnyGlob(rel string, patterns []string) (bool, error) {
	for _, p := range patterns {
		ok, err := doublestar.Match(p, rel)
		if err != nil {
			return false, fmt.Errorf("runtime: invalid glob pattern %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
