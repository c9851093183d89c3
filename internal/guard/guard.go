// ABOUTME: Built-in policy handlers: destructive shell commands and sensitive file access
// ABOUTME: Regexes are pre-compiled once; paths are NFC-normalized before matching

package guard

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/mauromedda/claude-hooks-go/pkg/hooks"
)

// DefaultDestructivePatterns block commands that wipe disks, filesystems or
// the root/home directory.
var DefaultDestructivePatterns = []string{
	`\brm\s+-(?:[a-zA-Z]*r[a-zA-Z]*f|[a-zA-Z]*f[a-zA-Z]*r)[a-zA-Z]*\s+(?:/|~|\$HOME)(?:\*|\s|$)`,
	`\bmkfs(?:\.\w+)?\s`,
	`\bdd\s+.*\bof=/dev/(?:sd|nvme|disk|hd)`,
	`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`,
	`\bchmod\s+-R\s+777\s+/(?:\s|$)`,
}

// DefaultSensitivePaths are path fragments that guard file tools.
var DefaultSensitivePaths = []string{".env", "secret", "password", "id_rsa", ".pem", "credentials"}

// fileTools are the tools whose input names a file.
var fileTools = map[string]string{
	"Read":         "file_path",
	"Write":        "file_path",
	"Edit":         "file_path",
	"MultiEdit":    "file_path",
	"NotebookEdit": "notebook_path",
}

// DestructiveCommand blocks Bash commands matching any of patterns. An
// empty list selects DefaultDestructivePatterns.
func DestructiveCommand(patterns []string) (hooks.Handler, error) {
	if len(patterns) == 0 {
		patterns = DefaultDestructivePatterns
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return hooks.Handler{}, fmt.Errorf("invalid destructive pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}

	return hooks.Named("destructive_command", func(_ context.Context, ev hooks.Event) (hooks.Result, error) {
		pre, ok := ev.(*hooks.PreToolUseEvent)
		if !ok || pre.ToolName() != "Bash" {
			return hooks.Neutral(), nil
		}
		cmd := pre.InputString("command", "")
		for _, re := range compiled {
			if re.MatchString(cmd) {
				return hooks.Blockf("Blocked destructive command: %s", cmd), nil
			}
		}
		return hooks.Neutral(), nil
	}), nil
}

// SensitiveFiles blocks file tools whose path contains any of fragments,
// compared case-insensitively after Unicode normalization. An empty list
// selects DefaultSensitivePaths.
func SensitiveFiles(fragments []string) hooks.Handler {
	if len(fragments) == 0 {
		fragments = DefaultSensitivePaths
	}
	normalized := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f = normalizePath(f); f != "" {
			normalized = append(normalized, f)
		}
	}

	return hooks.Named("sensitive_files", func(_ context.Context, ev hooks.Event) (hooks.Result, error) {
		pre, ok := ev.(*hooks.PreToolUseEvent)
		if !ok {
			return hooks.Neutral(), nil
		}
		key, guarded := fileTools[pre.ToolName()]
		if !guarded {
			return hooks.Neutral(), nil
		}
		path := pre.InputString(key, "")
		if path == "" {
			return hooks.Neutral(), nil
		}
		candidate := normalizePath(path)
		for _, frag := range normalized {
			if strings.Contains(candidate, frag) {
				return hooks.Blockf("Access to sensitive file blocked: %s", path), nil
			}
		}
		return hooks.Neutral(), nil
	})
}

// normalizePath folds composed/decomposed Unicode forms and case so that
// "SECRET" and a NFD-encoded "sécret" match their configured fragments.
func normalizePath(p string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(p)))
}
