// ABOUTME: PostToolUse audit handler appending one JSON line per tool call
// ABOUTME: Always neutral; a write failure is a handler error, not a silent skip

package guard

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mauromedda/claude-hooks-go/internal/config"
	"github.com/mauromedda/claude-hooks-go/pkg/hooks"
)

// AuditEntry is one line of the audit file.
type AuditEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Tool      string         `json:"tool"`
	Session   string         `json:"session,omitempty"`
	Input     map[string]any `json:"input"`
	Success   bool           `json:"success"`
}

// Audit records every PostToolUse event to path as JSON lines.
func Audit(path string) hooks.Handler {
	return hooks.Named("audit", func(_ context.Context, ev hooks.Event) (hooks.Result, error) {
		post, ok := ev.(*hooks.PostToolUseEvent)
		if !ok {
			return hooks.Neutral(), nil
		}
		entry := AuditEntry{
			Timestamp: time.Now().UTC(),
			Tool:      post.ToolName(),
			Session:   post.SessionID(),
			Input:     post.ToolInput(),
			Success:   post.Succeeded(),
		}
		if err := appendJSONLine(path, entry); err != nil {
			return hooks.Result{}, err
		}
		return hooks.Neutral(), nil
	})
}

func appendJSONLine(path string, v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding audit entry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating audit dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing audit file: %w", err)
	}
	return nil
}

// Handlers builds the guard handlers from settings, in the order
// destructive_command, sensitive_files, rules, audit.
func Handlers(s config.GuardSettings) ([]hooks.Handler, error) {
	destructive, err := DestructiveCommand(s.DestructivePatterns)
	if err != nil {
		return nil, err
	}
	rules, err := Rules(s.Deny, s.Allow)
	if err != nil {
		return nil, err
	}
	auditFile := s.AuditFile
	if auditFile == "" {
		auditFile = config.DefaultAuditFile()
	}
	return []hooks.Handler{
		destructive,
		SensitiveFiles(s.SensitivePaths),
		rules,
		Audit(auditFile),
	}, nil
}
