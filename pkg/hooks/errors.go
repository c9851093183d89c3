// ABOUTME: Error taxonomy: ParseError (bad stdin), UsageError (hook misuse), HandlerError
// ABOUTME: Each kind maps to its own exit code so failures never look like a block

package hooks

import (
	"errors"
	"fmt"
)

// ParseErrorKind classifies why the stdin payload could not become an Envelope.
type ParseErrorKind int

const (
	ErrKindEmpty ParseErrorKind = iota + 1
	ErrKindSyntax
	ErrKindNotObject
	ErrKindMissingEvent
	ErrKindTooLarge
	ErrKindTooDeep
	ErrKindFieldType
)

// Sentinels for errors.Is matching against a *ParseError of the same kind.
var (
	ErrEmptyInput   = errors.New("empty input")
	ErrInvalidJSON  = errors.New("invalid JSON")
	ErrNotObject    = errors.New("JSON root is not an object")
	ErrMissingEvent = errors.New("missing hook_event_name")
	ErrTooLarge     = errors.New("input too large")
	ErrTooDeep      = errors.New("JSON nesting too deep")
	ErrFieldType    = errors.New("envelope field has the wrong JSON type")
)

func (k ParseErrorKind) sentinel() error {
	switch k {
	case ErrKindEmpty:
		return ErrEmptyInput
	case ErrKindSyntax:
		return ErrInvalidJSON
	case ErrKindNotObject:
		return ErrNotObject
	case ErrKindMissingEvent:
		return ErrMissingEvent
	case ErrKindTooLarge:
		return ErrTooLarge
	case ErrKindTooDeep:
		return ErrTooDeep
	case ErrKindFieldType:
		return ErrFieldType
	}
	return nil
}

// String returns a short name for the kind.
func (k ParseErrorKind) String() string {
	switch k {
	case ErrKindEmpty:
		return "empty"
	case ErrKindSyntax:
		return "syntax"
	case ErrKindNotObject:
		return "not-object"
	case ErrKindMissingEvent:
		return "missing-event"
	case ErrKindTooLarge:
		return "too-large"
	case ErrKindTooDeep:
		return "too-deep"
	case ErrKindFieldType:
		return "field-type"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseError reports a payload that cannot be turned into an Envelope.
// It is always fatal: no handler runs.
type ParseError struct {
	Kind   ParseErrorKind
	Detail string
	Err    error
}

func (e *ParseError) Error() string {
	msg := e.Kind.String()
	if s := e.Kind.sentinel(); s != nil {
		msg = s.Error()
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying decoder error, if any.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinel, so errors.Is(err, ErrMissingEvent) works.
func (e *ParseError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// UsageError is a programming error in a hook: a view built over the wrong
// event, or a required field read that is not there.
type UsageError struct {
	Op  string
	Msg string
}

func (e *UsageError) Error() string {
	return e.Op + ": " + e.Msg
}

func usageErrorf(op, format string, args ...any) *UsageError {
	return &UsageError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// HandlerError reports a handler that returned an error, panicked or produced
// an invalid decision.
type HandlerError struct {
	Handler string
	Index   int
	Err     error
	// Panicked is set when the handler panicked rather than returning Err.
	Panicked bool
}

func (e *HandlerError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("hook %q panicked: %v", e.Handler, e.Err)
	}
	return fmt.Sprintf("hook %q failed: %v", e.Handler, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
