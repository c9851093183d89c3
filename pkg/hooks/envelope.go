// ABOUTME: Event envelope: the immutable JSON payload the host writes to stdin
// ABOUTME: Decoded with easyjson's jlexer; accessors hand out deep copies only

package hooks

import (
	"bytes"
	"fmt"
	"io"

	"github.com/mailru/easyjson/jlexer"
)

const (
	// MaxInputLen bounds how much of stdin is read.
	MaxInputLen = 8 << 20
	// maxJSONDepth matches the nesting guard of the hooks-store ingest server.
	maxJSONDepth = 100
)

// Wire keys accepted for each envelope field, in lookup order.
var (
	eventKeys    = []string{"hook_event_name", "eventName", "event"}
	toolKeys     = []string{"tool_name", "toolName", "tool"}
	inputKeys    = []string{"tool_input", "toolInput", "input"}
	responseKeys = []string{"tool_response", "toolResponse"}
)

// Envelope is the parsed event payload. It is built once per process and
// never changes; every accessor returns copies.
type Envelope struct {
	event       string
	tool        string
	hasTool     bool
	input       map[string]any
	response    map[string]any
	hasResponse bool
	fields      map[string]any
	raw         []byte
}

// ReadEnvelope reads at most MaxInputLen bytes from r and parses them.
func ReadEnvelope(r io.Reader) (*Envelope, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxInputLen+1))
	if err != nil {
		return nil, fmt.Errorf("reading hook input: %w", err)
	}
	if len(data) > MaxInputLen {
		return nil, &ParseError{Kind: ErrKindTooLarge, Detail: fmt.Sprintf("limit is %d bytes", MaxInputLen)}
	}
	return Parse(data)
}

// Parse decodes a JSON object into an Envelope. Every failure is a *ParseError.
func Parse(data []byte) (*Envelope, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Kind: ErrKindEmpty}
	}

	// jlexer descends recursively, so nesting is bounded before decoding.
	if tooDeep(data, maxJSONDepth) {
		return nil, &ParseError{Kind: ErrKindTooDeep, Detail: fmt.Sprintf("maximum is %d", maxJSONDepth)}
	}

	l := jlexer.Lexer{Data: data}
	root := l.Interface()
	l.Consumed()
	if err := l.Error(); err != nil {
		return nil, &ParseError{Kind: ErrKindSyntax, Err: err}
	}

	fields, ok := root.(map[string]any)
	if !ok {
		return nil, &ParseError{Kind: ErrKindNotObject, Detail: fmt.Sprintf("got %s", jsonKind(root))}
	}

	env := &Envelope{fields: fields, raw: bytes.Clone(data)}

	rawEvent, found := lookup(fields, eventKeys)
	event, isString := rawEvent.(string)
	if !found || !isString || event == "" {
		return nil, &ParseError{Kind: ErrKindMissingEvent}
	}
	env.event = event

	if rawTool, found := lookup(fields, toolKeys); found && rawTool != nil {
		tool, ok := rawTool.(string)
		if !ok {
			return nil, &ParseError{Kind: ErrKindFieldType, Detail: "tool_name is " + jsonKind(rawTool)}
		}
		env.tool, env.hasTool = tool, true
	}

	if rawInput, found := lookup(fields, inputKeys); found && rawInput != nil {
		input, ok := rawInput.(map[string]any)
		if !ok {
			return nil, &ParseError{Kind: ErrKindNotObject, Detail: "tool_input is " + jsonKind(rawInput)}
		}
		env.input = input
	}

	if rawResp, found := lookup(fields, responseKeys); found && rawResp != nil {
		resp, ok := rawResp.(map[string]any)
		if !ok {
			return nil, &ParseError{Kind: ErrKindNotObject, Detail: "tool_response is " + jsonKind(rawResp)}
		}
		env.response, env.hasResponse = resp, true
	}

	return env, nil
}

// EventName returns the lifecycle event tag.
func (e *Envelope) EventName() string { return e.event }

// ToolName returns the tool name and whether the payload carried one.
func (e *Envelope) ToolName() (string, bool) { return e.tool, e.hasTool }

// Input looks up key in the tool input. ok is false when the key is absent.
func (e *Envelope) Input(key string) (any, bool) {
	v, ok := e.input[key]
	if !ok {
		return nil, false
	}
	return cloneValue(v), true
}

// ToolInput returns a copy of the tool input; never nil.
func (e *Envelope) ToolInput() map[string]any {
	return cloneMap(e.input)
}

// HasResponse reports whether the payload carried a tool response.
func (e *Envelope) HasResponse() bool { return e.hasResponse }

// Response looks up key in the tool response. ok is false when the key or
// the whole response is absent.
func (e *Envelope) Response(key string) (any, bool) {
	v, ok := e.response[key]
	if !ok {
		return nil, false
	}
	return cloneValue(v), true
}

// ToolResponse returns a copy of the tool response, or nil when absent.
func (e *Envelope) ToolResponse() map[string]any {
	if !e.hasResponse {
		return nil
	}
	return cloneMap(e.response)
}

// Field returns any top-level payload field verbatim (as a copy).
func (e *Envelope) Field(key string) (any, bool) {
	v, ok := e.fields[key]
	if !ok {
		return nil, false
	}
	return cloneValue(v), true
}

// Raw returns a copy of the payload bytes exactly as received.
func (e *Envelope) Raw() []byte { return bytes.Clone(e.raw) }

// Fields returns a copy of the whole payload.
func (e *Envelope) Fields() map[string]any {
	return cloneMap(e.fields)
}

// SessionID returns the session_id field or "".
func (e *Envelope) SessionID() string { return e.stringField("session_id") }

// TranscriptPath returns the transcript_path field or "".
func (e *Envelope) TranscriptPath() string { return e.stringField("transcript_path") }

// CWD returns the cwd field or "".
func (e *Envelope) CWD() string { return e.stringField("cwd") }

func (e *Envelope) stringField(key string) string {
	s, _ := e.fields[key].(string)
	return s
}

func lookup(m map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	}
	return fmt.Sprintf("%T", v)
}

// tooDeep reports whether objects and arrays in data nest more than limit
// levels, skipping brackets inside string literals. Unbalanced input is
// left for the decoder to reject.
func tooDeep(data []byte, limit int) bool {
	depth := 0
	inString, escaped := false, false
	for _, c := range data {
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
			if depth > limit {
				return true
			}
		case '}', ']':
			if depth > 0 {
				depth--
			}
		}
	}
	return false
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, c := range t {
			out[i] = cloneValue(c)
		}
		return out
	}
	return v
}
