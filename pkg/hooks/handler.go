// ABOUTME: Handler contract: a named function from Event to Result
// ABOUTME: Func derives the handler name from the function symbol for diagnostics

package hooks

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// HandlerFunc is the signature every hook implements. Returning an error
// (or panicking) is a malfunction and ends the invocation with
// ExitHandlerError; deliberate refusals return Block instead.
type HandlerFunc func(ctx context.Context, ev Event) (Result, error)

// Handler is a HandlerFunc with the name used in diagnostics, logs and spans.
type Handler struct {
	Name string
	Fn   HandlerFunc
}

// Named pairs fn with an explicit name.
func Named(name string, fn HandlerFunc) Handler {
	return Handler{Name: name, Fn: fn}
}

// Func wraps fn, naming it after its function symbol ("main.bashGuard"
// becomes "bashGuard"). Closures get names like "TestX.func1".
func Func(fn HandlerFunc) Handler {
	return Handler{Name: funcName(fn), Fn: fn}
}

// Simple adapts a function that cannot fail.
func Simple(name string, fn func(ev Event) Result) Handler {
	return Named(name, func(_ context.Context, ev Event) (Result, error) {
		return fn(ev), nil
	})
}

func funcName(fn HandlerFunc) string {
	if fn == nil {
		return "<nil>"
	}
	rf := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if rf == nil {
		return "<unknown>"
	}
	name := rf.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// label is the name shown for the handler at index i.
func (h Handler) label(i int) string {
	if h.Name != "" {
		return h.Name
	}
	return fmt.Sprintf("handler#%d", i)
}
