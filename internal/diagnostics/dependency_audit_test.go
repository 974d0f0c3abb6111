package diagnostics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestParseGoMod(t *testing.T) {
	tmpDir := t.TempDir()
	goModPath := filepath.Join(tmpDir, "go.mod")

	goModContent := `module example.com/test

go 1.21

require (
	github.com/stretchr/testify v1.8.0
	golang.org/x/mod v0.12.0
)

require (
	github.com/davecgh/go-spew v1.1.1 // indirect
)
`
	if err := os.WriteFile(goModPath, []byte(goModContent), 0644); err != nil {
		t.Fatalf("write go.mod: %v", err)
	}

	a := NewDependencyAuditor()
	deps, err := a.ParseGoMod(goModPath)
	if err != nil {
		t.Fatalf("ParseGoMod: %v", err)
	}
	if len(deps) != 2 {
		t.Fatalf("expected 2 direct deps, got %d: %+v", len(deps), deps)
	}
	if deps[0].Path != "github.com/stretchr/testify" || deps[0].Version != "v1.8.0" {
		t.Errorf("unexpected first dep: %+v", deps[0])
	}
}

func TestCheckOutdated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/github.com/example/fresh/@latest":
			w.Write([]byte(`{"Version":"v1.0.0"}`))
		case "/github.com/example/stale/@latest":
			w.Write([]byte(`{"Version":"v2.0.0"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	a := &DependencyAuditor{HTTPClient: srv.Client(), ProxyBaseURL: srv.URL}
	deps := []Dependency{
		{Path: "github.com/example/fresh", Version: "v1.0.0"},
		{Path: "github.com/example/stale", Version: "v1.5.0"},
	}

	outdated, skipped := a.CheckOutdated(context.Background(), deps)
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}
	if len(outdated) != 1 || outdated[0].Package != "github.com/example/stale" {
		t.Errorf("unexpected outdated set: %+v", outdated)
	}
}
