package bash

import (
	"path/filepath"
	"regexp"
	"strings"
)

// truncationPrefix is set on CmdOutputMetadata.Prefix when accumulated
// output exceeded the configured threshold, per SPEC_FULL.md §4.5.
const truncationPrefix = "Previous command outputs are truncated"

// truncateLines caps content to the configured max line count, keeping
// the final lines and returning whether truncation occurred.
func truncateLines(content string, maxLines int) (string, bool) {
	if maxLines <= 0 {
		return content, false
	}
	lines := strings.Split(content, "\n")
	if len(lines) <= maxLines {
		return content, false
	}
	return strings.Join(lines[len(lines)-maxLines:], "\n"), true
}

var cdPattern = regexp.MustCompile(`^\s*cd\s+(\S+)\s*$`)

// parseCdTarget reports the target directory of a bare `cd <dir>` command,
// used to track Cwd across Execute calls without a real shell session.
func parseCdTarget(cmd string) (string, bool) {
	m := cdPattern.FindStringSubmatch(strings.TrimSpace(cmd))
	if m == nil {
		return "", false
	}
	return strings.Trim(m[1], `"'`), true
}

func resolveCwd(cwd, target string) string {
	if target == "" || target == "~" {
		return cwd
	}
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Clean(filepath.Join(cwd, target))
}
