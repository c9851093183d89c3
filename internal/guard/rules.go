// ABOUTME: Tool permission rules such as "Bash(npm run *)" or "Edit(/src/**)"
// ABOUTME: Deny rules block, allow rules approve; deny is checked before allow

package guard

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/mauromedda/claude-hooks-go/pkg/hooks"
)

// Rule matches a tool name and, optionally, the tool's primary argument.
type Rule struct {
	// Tool is a tool name, "*", or a prefix ending in "*".
	Tool string
	// Pattern is matched against the argument; empty matches any call.
	Pattern string
	raw     string
}

func (r Rule) String() string { return r.raw }

// ParseRule parses "Tool" or "Tool(pattern)".
func ParseRule(s string) (Rule, error) {
	s = strings.TrimSpace(s)
	r := Rule{Tool: s, raw: s}
	if open := strings.IndexByte(s, '('); open >= 0 {
		if open == 0 || !strings.HasSuffix(s, ")") {
			return Rule{}, fmt.Errorf("invalid rule %q: want Tool or Tool(pattern)", s)
		}
		r.Tool, r.Pattern = s[:open], s[open+1:len(s)-1]
	}
	if r.Tool == "" {
		return Rule{}, fmt.Errorf("invalid rule %q: empty tool", s)
	}
	return r, nil
}

// Matches reports whether the rule covers a call of tool with argument arg.
func (r Rule) Matches(tool, arg string) bool {
	if !matchTool(r.Tool, tool) {
		return false
	}
	if r.Pattern == "" {
		return true
	}
	if arg == "" {
		return false
	}
	switch {
	case strings.HasSuffix(r.Pattern, "/**"):
		if strings.HasPrefix(arg, strings.TrimSuffix(r.Pattern, "**")) || arg == strings.TrimSuffix(r.Pattern, "/**") {
			return true
		}
	case strings.HasSuffix(r.Pattern, "*"):
		// "rm *" and "npm*" are prefix matches on the command line.
		if strings.HasPrefix(arg, strings.TrimSuffix(strings.TrimSuffix(r.Pattern, "*"), " ")) {
			return true
		}
	}
	if ok, _ := filepath.Match(r.Pattern, arg); ok {
		return true
	}
	return r.Pattern == arg
}

func matchTool(pattern, name string) bool {
	if pattern == "*" {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(name, prefix)
	}
	return strings.EqualFold(pattern, name)
}

// ruleArgument extracts the value rules match against for a tool call.
func ruleArgument(pre *hooks.PreToolUseEvent) string {
	tool := pre.ToolName()
	if key, ok := fileTools[tool]; ok {
		return pre.InputString(key, "")
	}
	switch tool {
	case "Bash":
		return pre.InputString("command", "")
	case "WebFetch":
		if u, err := url.Parse(pre.InputString("url", "")); err == nil && u.Hostname() != "" {
			return "domain:" + u.Hostname()
		}
	case "Grep", "Glob", "LS":
		return pre.InputString("path", "")
	}
	return ""
}

// Rules builds a PreToolUse handler from deny and allow rule strings. A
// matching deny rule blocks; otherwise a matching allow rule approves.
func Rules(deny, allow []string) (hooks.Handler, error) {
	denyRules, err := parseRules(deny)
	if err != nil {
		return hooks.Handler{}, err
	}
	allowRules, err := parseRules(allow)
	if err != nil {
		return hooks.Handler{}, err
	}

	return hooks.Named("rules", func(_ context.Context, ev hooks.Event) (hooks.Result, error) {
		pre, ok := ev.(*hooks.PreToolUseEvent)
		if !ok {
			return hooks.Neutral(), nil
		}
		tool, arg := pre.ToolName(), ruleArgument(pre)
		for _, r := range denyRules {
			if r.Matches(tool, arg) {
				return hooks.Blockf("Denied by rule %s", r), nil
			}
		}
		for _, r := range allowRules {
			if r.Matches(tool, arg) {
				return hooks.Approvef("Allowed by rule %s", r), nil
			}
		}
		return hooks.Neutral(), nil
	}), nil
}

func parseRules(specs []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(specs))
	for _, s := range specs {
		r, err := ParseRule(s)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}
