// Package diagnostics implements the dependency-freshness check behind
// the CLI's doctor command; the environment-variable and
// session-directory checks live in cmd/agentcore/doctor.go. Grounded on
// the teacher pack's
// internal/health/dependency_auditor.go, trimmed to a direct freshness
// report (no AI-supervisor evaluation pass, since this domain has no
// AISupervisor abstraction to delegate severity judgments to).
package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/semver"
)

// Dependency is a single direct require-block entry from go.mod.
type Dependency struct {
	Path    string
	Version string
}

// OutdatedDependency is a Dependency whose module proxy @latest differs
// from the version pinned in go.mod.
type OutdatedDependency struct {
	Package        string
	CurrentVersion string
	LatestVersion  string
}

// DependencyAuditor checks a module's direct dependencies against the Go
// module proxy for newer versions.
type DependencyAuditor struct {
	HTTPClient *http.Client

	// ProxyBaseURL defaults to the public Go module proxy; tests override
	// it to point at an httptest server.
	ProxyBaseURL string
}

// NewDependencyAuditor returns an auditor with a bounded-timeout client
// pointed at the public Go module proxy.
func NewDependencyAuditor() *DependencyAuditor {
	return &DependencyAuditor{
		HTTPClient:   &http.Client{Timeout: 10 * time.Second},
		ProxyBaseURL: "https://proxy.golang.org",
	}
}

// ParseGoMod extracts direct (non-indirect) requirements from the go.mod
// at path.
func (a *DependencyAuditor) ParseGoMod(path string) ([]Dependency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: reading go.mod: %w", err)
	}

	mf, err := modfile.Parse(path, data, nil)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: parsing go.mod: %w", err)
	}

	var deps []Dependency
	for _, req := range mf.Require {
		if req.Indirect {
			continue
		}
		deps = append(deps, Dependency{Path: req.Mod.Path, Version: req.Mod.Version})
	}
	return deps, nil
}

// CheckOutdated queries the Go module proxy for each dependency's latest
// version and reports any whose pinned version is behind it. A proxy
// lookup failure for one module is logged to the returned slice's
// skipped count via the second return value, not treated as fatal.
func (a *DependencyAuditor) CheckOutdated(ctx context.Context, deps []Dependency) (outdated []OutdatedDependency, skipped int) {
	for _, dep := range deps {
		latest, err := a.latestVersion(ctx, dep.Path)
		if err != nil || latest == "" {
			skipped++
			continue
		}
		if semver.IsValid(dep.Version) && semver.IsValid(latest) && semver.Compare(dep.Version, latest) < 0 {
			outdated = append(outdated, OutdatedDependency{
				Package:        dep.Path,
				CurrentVersion: dep.Version,
				LatestVersion:  latest,
			})
		}
	}
	return outdated, skipped
}

func (a *DependencyAuditor) latestVersion(ctx context.Context, modulePath string) (string, error) {
	base := a.ProxyBaseURL
	if base == "" {
		base = "https://proxy.golang.org"
	}
	url := fmt.Sprintf("%s/%s/@latest", base, modulePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("diagnostics: building proxy request: %w", err)
	}

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("diagnostics: querying module proxy: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("diagnostics: module proxy returned %d for %s", resp.StatusCode, modulePath)
	}

	var info struct {
		Version string `json:"Version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("diagnostics: decoding proxy response: %w", err)
	}
	return info.Version, nil
}
