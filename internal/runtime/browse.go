package runtime

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/agentcore/agentcore/internal/events"
)

// browseClient is shared across calls; a generous but bounded timeout
// keeps a hung fetch from stalling the whole session indefinitely.
var browseClient = &http.Client{Timeout: 20 * time.Second}

// browseURL executes a BrowseURLAction by fetching the page and reducing
// it to its visible text, the way a headless-browser-free fetch can
// cheaply approximate "rendered content" for an agent. Grounded on
// SPEC_FULL.md §6b's golang.org/x/net/html wiring for BrowseURL.
func browseURL(ctx context.Context, a *events.BrowseURLAction) (*events.BrowserOutputObservation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return &events.BrowserOutputObservation{URL: a.URL, Content: fmt.Sprintf("invalid url: %v", err), Error: true}, nil
	}

	resp, err := browseClient.Do(req)
	if err != nil {
		return &events.BrowserOutputObservation{URL: a.URL, Content: fmt.Sprintf("fetch failed: %v", err), Error: true}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &events.BrowserOutputObservation{URL: a.URL, Content: fmt.Sprintf("http %d", resp.StatusCode), Error: true}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20)) // 2MB cap
	if err != nil {
		return &events.BrowserOutputObservation{URL: a.URL, Content: fmt.Sprintf("read failed: %v", err), Error: true}, nil
	}

	text, err := extractText(string(body))
	if err != nil {
		return &events.BrowserOutputObservation{URL: a.URL, Content: fmt.Sprintf("parse failed: %v", err), Error: true}, nil
	}

	return &events.BrowserOutputObservation{URL: a.URL, Content: text}, nil
}

// extractText walks an HTML document's node tree and concatenates text
// node content, skipping script/style bodies.
func extractText(doc string) (string, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			trimmed := strings.TrimSpace(n.Data)
			if trimmed != "" {
				b.WriteString(trimmed)
				b.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return strings.TrimSpace(b.String()), nil
}

// browseInteractive is not implemented by the local adapter: scripted
// browser interaction (click/type/navigate against a live DOM) needs a
// real browser driver, which is out of scope for a sandboxed-worktree
// Runtime. It reports the limitation as a non-fatal error observation so
// the agent can fall back to browse_url or another approach.
func browseInteractive(a *events.BrowseInteractiveAction) *events.BrowserOutputObservation {
	return &events.BrowserOutputObservation{
		Content: "browse_interactive is not supported by this runtime; use browse_url for static content",
		Error:   true,
	}
}
