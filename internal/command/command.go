// ABOUTME: External command handlers: pipe the raw event to "sh -c" and map its exit status
// ABOUTME: Exit 2 blocks with stderr as reason; exit 0 may print a JSON decision on stdout

package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/mailru/easyjson"
	"github.com/mailru/easyjson/jlexer"

	"github.com/mauromedda/claude-hooks-go/internal/config"
	"github.com/mauromedda/claude-hooks-go/internal/log"
	"github.com/mauromedda/claude-hooks-go/pkg/hooks"
)

// DefaultTimeout applies when a definition sets none.
const DefaultTimeout = 10 * time.Second

// maxStderr bounds how much command stderr ends up in an error message.
const maxStderr = 200

// Handler builds a hooks.Handler from def. The matcher regex is compiled
// once here, so a bad pattern fails at startup rather than per event.
func Handler(def config.CommandDef) (hooks.Handler, error) {
	if strings.TrimSpace(def.Command) == "" {
		return hooks.Handler{}, errors.New("command hook has no command")
	}

	var matcher *regexp.Regexp
	if def.Matcher != "" {
		re, err := regexp.Compile(def.Matcher)
		if err != nil {
			return hooks.Handler{}, fmt.Errorf("invalid hook matcher %q: %w", def.Matcher, err)
		}
		matcher = re
	}

	timeout := def.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	name := def.Name
	if name == "" {
		name = "command:" + def.Command
	}

	return hooks.Named(name, func(ctx context.Context, ev hooks.Event) (hooks.Result, error) {
		if def.Event != "" && string(ev.Name()) != def.Event {
			return hooks.Neutral(), nil
		}
		if matcher != nil {
			tool, _ := ev.Envelope().ToolName()
			if !matcher.MatchString(tool) {
				return hooks.Neutral(), nil
			}
		}
		return run(ctx, def.Command, timeout, ev.Envelope().Raw())
	}), nil
}

// Handlers builds one handler per definition, in order.
func Handlers(defs []config.CommandDef) ([]hooks.Handler, error) {
	out := make([]hooks.Handler, 0, len(defs))
	for i, def := range defs {
		h, err := Handler(def)
		if err != nil {
			return nil, fmt.Errorf("commands[%d]: %w", i, err)
		}
		out = append(out, h)
	}
	return out, nil
}

// run executes command with payload on stdin. The process group is killed
// when the timeout or the parent context expires.
func run(ctx context.Context, command string, timeout time.Duration, payload []byte) (hooks.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Stdin = bytes.NewReader(payload)
	setProcGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	cmd.Cancel = func() error {
		return killProcGroup(cmd)
	}

	runErr := cmd.Run()

	if ctx.Err() != nil {
		return hooks.Result{}, fmt.Errorf("command timed out after %v: %w", timeout, ctx.Err())
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) && exitErr.ExitCode() == hooks.ExitBlock {
			return hooks.Block(strings.TrimSpace(stderr.String())), nil
		}
		return hooks.Result{}, fmt.Errorf("command failed: %w (stderr: %q)",
			runErr, log.Clip(strings.TrimSpace(stderr.String()), maxStderr))
	}

	return parseOutput(stdout.Bytes())
}

// output is the optional JSON a command prints on success.
type output struct {
	Decision string
	Reason   string
}

// UnmarshalEasyJSON implements easyjson.Unmarshaler.
func (o *output) UnmarshalEasyJSON(l *jlexer.Lexer) {
	if l.IsNull() {
		l.Skip()
		return
	}
	l.Delim('{')
	for !l.IsDelim('}') {
		key := l.UnsafeFieldName(false)
		l.WantColon()
		if l.IsNull() {
			l.Skip()
			l.WantComma()
			continue
		}
		switch key {
		case "decision":
			o.Decision = l.String()
		case "reason":
			o.Reason = l.String()
		default:
			l.SkipRecursive()
		}
		l.WantComma()
	}
	l.Delim('}')
}

// parseOutput maps stdout to a result. Plain text is informational and
// yields neutral; a JSON object must carry a known decision.
func parseOutput(stdout []byte) (hooks.Result, error) {
	trimmed := bytes.TrimSpace(stdout)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return hooks.Neutral(), nil
	}

	var out output
	if err := easyjson.Unmarshal(trimmed, &out); err != nil {
		return hooks.Result{}, fmt.Errorf("parse command output (raw: %q): %w", log.Clip(string(trimmed), maxStderr), err)
	}

	switch out.Decision {
	case "":
		return hooks.Neutral(), nil
	case "approve":
		return hooks.Approve(out.Reason), nil
	case "block":
		return hooks.Block(out.Reason), nil
	}
	return hooks.Result{}, fmt.Errorf("unknown decision %q in command output", out.Decision)
}
