package runtime

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agentcore/agentcore/internal/events"
)

func TestResolvePathRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	if _, err := resolvePath(root, "../../etc/passwd"); err == nil {
		t.Fatal("expected resolvePath to reject a path escaping the sandbox root")
	}
}

func TestResolvePathAllowsNested(t *testing.T) {
	root := t.TempDir()
	full, err := resolvePath(root, "sub/dir/file.txt")
	if err != nil {
		t.Fatalf("resolvePath: %v", err)
	}
	want := filepath.Join(root, "sub", "dir", "file.txt")
	if full != want {
		t.Fatalf("resolvePath = %q, want %q", full, want)
	}
}

func TestReadFileWholeAndRanged(t *testing.T) {
	root := t.TempDir()
	content := "line1\nline2\nline3\nline4\n"
	if err := os.WriteFile(filepath.Join(root, "f.txt"), []byte(content), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	obs, err := readFile(root, &events.FileReadAction{Path: "f.txt"})
	if err != nil {
		t.Fatalf("readFile: %v", err)
	}
	if obs.Content != content {
		t.Errorf("whole-file read = %q, want %q", obs.Content, content)
	}

	ranged, err := readFile(root, &events.FileReadAction{
		Path:      "f.txt",
		ViewRange: &events.ViewRange{Start: 2, End: 3},
	})
	if err != nil {
		t.Fatalf("readFile ranged: %v", err)
	}
	if ranged.Content != "line2\nline3" {
		t.Errorf("ranged read = %q, want %q", ranged.Content, "line2\nline3")
	}
}

func TestEditFileOverwritesContent(t *testing.T) {
	root := t.TempDir()
	newContent := "replaced\n"
	obs, err := editFile(root, &events.FileEditAction{Path: "new/deep/f.txt", Content: &newContent})
	if err != nil {
		t.Fatalf("editFile: %v", err)
	}
	if obs.Content != newContent {
		t.Errorf("Content = %q, want %q", obs.Content, newContent)
	}
	data, err := os.ReadFile(filepath.Join(root, "new", "deep", "f.txt"))
	if err != nil {
		t.Fatalf("ReadFile after edit: %v", err)
	}
	if string(data) != newContent {
		t.Errorf("file on disk = %q, want %q", string(data), newContent)
	}
}

func TestEditFileStrReplaceRequiresUniqueMatch(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "f.txt"), []byte("foo foo"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	_, err := editFile(root, &events.FileEditAction{Path: "f.txt", Command: "str_replace", OldStr: "foo", NewStr: "bar"})
	if err == nil {
		t.Fatal("expected str_replace to reject an ambiguous (non-unique) old_str match")
	}
}

func TestEditFileStrReplaceSingleMatch(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "f.txt"), []byte("hello world"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	obs, err := editFile(root, &events.FileEditAction{Path: "f.txt", Command: "str_replace", OldStr: "world", NewStr: "there"})
	if err != nil {
		t.Fatalf("editFile: %v", err)
	}
	if obs.Content != "hello there" {
		t.Errorf("Content = %q, want %q", obs.Content, "hello there")
	}
}

func TestEditFileInsertAtLine(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "f.txt"), []byte("a\nb\nc"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	line := 1
	obs, err := editFile(root, &events.FileEditAction{Path: "f.txt", Command: "insert", InsertLine: &line, FileText: "X"})
	if err != nil {
		t.Fatalf("editFile: %v", err)
	}
	if obs.Content != "a\nX\nb\nc" {
		t.Errorf("Content = %q, want %q", obs.Content, "a\nX\nb\nc")
	}
}

func TestMatchesAnyGlob(t *testing.T) {
	ok, err := matchesAnyGlob("src/main.go", []string{"src/**/*.go"})
	if err != nil {
		t.Fatalf("matchesAnyGlob: %v", err)
	}
	if !ok {
		t.Error("expected src/main.go to match src/**/*.go")
	}

	ok, err = matchesAnyGlob("docs/readme.md", []string{"src/**/*.go"})
	if err != nil {
		t.Fatalf("matchesAnyGlob: %v", err)
	}
	if ok {
		t.Error("expected docs/readme.md not to match src/**/*.go")
	}
}
