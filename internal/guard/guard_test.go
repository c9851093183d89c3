// ABOUTME: Tests for the built-in guard handlers driven through hooks.Runner
// ABOUTME: Covers destructive commands, sensitive paths (incl. NFD input) and the audit log

package guard

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mauromedda/claude-hooks-go/internal/config"
	"github.com/mauromedda/claude-hooks-go/pkg/hooks"
)

func execute(t *testing.T, payload string, handlers ...hooks.Handler) hooks.Outcome {
	t.Helper()
	env, err := hooks.Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	r := hooks.NewRunner(hooks.WithIO(nil, &bytes.Buffer{}, &bytes.Buffer{}))
	out, err := r.Execute(context.Background(), env, handlers...)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return out
}

func bashPayload(cmd string) string {
	b, _ := json.Marshal(map[string]any{
		"hook_event_name": "PreToolUse",
		"tool_name":       "Bash",
		"tool_input":      map[string]any{"command": cmd},
	})
	return string(b)
}

func filePayload(tool, key, path string) string {
	b, _ := json.Marshal(map[string]any{
		"hook_event_name": "PreToolUse",
		"tool_name":       tool,
		"tool_input":      map[string]any{key: path},
	})
	return string(b)
}

func TestDestructiveCommand_Defaults(t *testing.T) {
	t.Parallel()

	h, err := DestructiveCommand(nil)
	if err != nil {
		t.Fatalf("DestructiveCommand: %v", err)
	}

	tests := []struct {
		cmd     string
		blocked bool
	}{
		{"rm -rf /", true},
		{"sudo rm -rf / --no-preserve-root", true},
		{"rm -fr ~", true},
		{"rm -rf $HOME", true},
		{"mkfs.ext4 /dev/sda1", true},
		{"dd if=/dev/zero of=/dev/sda bs=1M", true},
		{":(){ :|:& };:", true},
		{"chmod -R 777 /", true},
		{"rm -rf /tmp/build", false},
		{"rm -rf ./node_modules", false},
		{"ls -la", false},
		{"echo rm", false},
	}
	for _, tt := range tests {
		out := execute(t, bashPayload(tt.cmd), h)
		if blocked := out.Result.Decision == hooks.DecisionBlock; blocked != tt.blocked {
			t.Errorf("%q blocked = %v, want %v", tt.cmd, blocked, tt.blocked)
		}
		if tt.blocked && out.Result.Reason != "Blocked destructive command: "+tt.cmd {
			t.Errorf("%q reason = %q", tt.cmd, out.Result.Reason)
		}
	}
}

func TestDestructiveCommand_IgnoresOtherTools(t *testing.T) {
	t.Parallel()

	h, err := DestructiveCommand(nil)
	if err != nil {
		t.Fatalf("DestructiveCommand: %v", err)
	}
	out := execute(t, filePayload("Write", "file_path", "rm -rf /"), h)
	if out.Result.Decision != hooks.DecisionNeutral {
		t.Errorf("decision = %v, want neutral", out.Result.Decision)
	}
	stop := execute(t, `{"hook_event_name":"Stop"}`, h)
	if stop.Result.Decision != hooks.DecisionNeutral {
		t.Errorf("Stop decision = %v, want neutral", stop.Result.Decision)
	}
}

func TestDestructiveCommand_CustomAndInvalidPatterns(t *testing.T) {
	t.Parallel()

	h, err := DestructiveCommand([]string{`\bgit\s+push\s+--force\b`})
	if err != nil {
		t.Fatalf("DestructiveCommand: %v", err)
	}
	if out := execute(t, bashPayload("git push --force origin main"), h); out.Result.Decision != hooks.DecisionBlock {
		t.Errorf("custom pattern did not block: %+v", out.Result)
	}
	if out := execute(t, bashPayload("rm -rf /"), h); out.Result.Decision != hooks.DecisionNeutral {
		t.Errorf("custom list should replace defaults: %+v", out.Result)
	}

	if _, err := DestructiveCommand([]string{"("}); err == nil || !strings.Contains(err.Error(), "invalid destructive pattern") {
		t.Errorf("err = %v, want invalid pattern error", err)
	}
}

func TestSensitiveFiles(t *testing.T) {
	t.Parallel()

	h := SensitiveFiles(nil)

	tests := []struct {
		tool, key, path string
		blocked         bool
	}{
		{"Read", "file_path", "/app/.env", true},
		{"Edit", "file_path", "/home/u/.ssh/id_rsa", true},
		{"Write", "file_path", "/etc/SECRETS/db.yaml", true},
		{"MultiEdit", "file_path", "/srv/tls/server.PEM", true},
		{"NotebookEdit", "notebook_path", "/nb/credentials.ipynb", true},
		{"Read", "file_path", "/app/main.go", false},
		{"Glob", "pattern", "**/.env", false},
		{"Read", "path", "/app/.env", false},
	}
	for _, tt := range tests {
		out := execute(t, filePayload(tt.tool, tt.key, tt.path), h)
		if blocked := out.Result.Decision == hooks.DecisionBlock; blocked != tt.blocked {
			t.Errorf("%s %q blocked = %v, want %v", tt.tool, tt.path, blocked, tt.blocked)
		}
	}

	out := execute(t, filePayload("Read", "file_path", "/app/.env"), h)
	if out.Result.Reason != "Access to sensitive file blocked: /app/.env" {
		t.Errorf("reason = %q", out.Result.Reason)
	}
}

func TestSensitiveFiles_UnicodeNormalization(t *testing.T) {
	t.Parallel()

	// Fragment composed (NFC), path decomposed (NFD) as macOS file systems report it.
	h := SensitiveFiles([]string{"cl\u00e9"})
	out := execute(t, filePayload("Read", "file_path", "/keys/CLE\u0301.txt"), h)
	if out.Result.Decision != hooks.DecisionBlock {
		t.Errorf("NFD path not matched: %+v", out.Result)
	}
}

func TestAudit_AppendsPostToolUse(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "audit.jsonl")
	h := Audit(path)

	execute(t, `{"hook_event_name":"PostToolUse","session_id":"s1","tool_name":"Bash","tool_input":{"command":"ls"},"tool_response":{"output":"a"}}`, h)
	execute(t, `{"hook_event_name":"PostToolUse","tool_name":"Write","tool_input":{"file_path":"/x"},"tool_response":{"error":"denied"}}`, h)
	out := execute(t, bashPayload("ls"), h)
	if out.Result.Decision != hooks.DecisionNeutral {
		t.Errorf("audit decision = %v, want neutral", out.Result.Decision)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening audit file: %v", err)
	}
	defer f.Close()

	var entries []AuditEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e AuditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("decoding %q: %v", sc.Text(), err)
		}
		entries = append(entries, e)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (PreToolUse is not audited)", len(entries))
	}
	if entries[0].Tool != "Bash" || entries[0].Session != "s1" || !entries[0].Success || entries[0].Input["command"] != "ls" {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[1].Tool != "Write" || entries[1].Success {
		t.Errorf("entry 1 = %+v", entries[1])
	}
}

func TestAudit_WriteFailureIsHandlerError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	h := Audit(filepath.Join(blocker, "audit.jsonl"))

	env, err := hooks.Parse([]byte(`{"hook_event_name":"PostToolUse","tool_name":"Bash"}`))
	if err != nil {
		t.Fatal(err)
	}
	r := hooks.NewRunner(hooks.WithIO(nil, &bytes.Buffer{}, &bytes.Buffer{}))
	out, err := r.Execute(context.Background(), env, h)
	if code := hooks.ExitCode(out, err); code != hooks.ExitHandlerError {
		t.Errorf("exit code = %d, want %d", code, hooks.ExitHandlerError)
	}
}

func TestHandlers_FromSettings(t *testing.T) {
	t.Parallel()

	hs, err := Handlers(config.GuardSettings{AuditFile: filepath.Join(t.TempDir(), "a.jsonl")})
	if err != nil {
		t.Fatalf("Handlers: %v", err)
	}
	var names []string
	for _, h := range hs {
		names = append(names, h.Name)
	}
	if got := strings.Join(names, ","); got != "destructive_command,sensitive_files,rules,audit" {
		t.Errorf("handlers = %s", got)
	}

	if _, err := Handlers(config.GuardSettings{DestructivePatterns: []string{"[unclosed"}}); err == nil {
		t.Error("Handlers accepted an invalid pattern")
	}
	if _, err := Handlers(config.GuardSettings{Deny: []string{"Bash(rm *"}}); err == nil {
		t.Error("Handlers accepted an invalid rule")
	}
}
