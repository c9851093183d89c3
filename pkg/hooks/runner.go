// ABOUTME: Hook runner: invokes handlers (concurrently when several), merges decisions
// ABOUTME: Translates the merged verdict into the host's exit-code and stderr contract

package hooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/mauromedda/claude-hooks-go/internal/log"
)

// Exit codes of a hook process. They are part of the host contract and
// never change.
const (
	ExitOK           = 0 // approve or neutral
	ExitParseError   = 1 // stdin was not a valid envelope; no handler ran
	ExitBlock        = 2 // a handler blocked; the reason is on stderr
	ExitHandlerError = 3 // a handler failed or panicked
	ExitUsageError   = 4 // a handler misused the API (wrong view, missing field)
)

const tracerName = "github.com/mauromedda/claude-hooks-go/pkg/hooks"

// runnerHook is the hook name used for runner-level sink messages.
const runnerHook = "runner"

// Report is what one handler produced.
type Report struct {
	Handler  string
	Result   Result
	Err      error
	Duration time.Duration
}

// Outcome is the merged verdict of one invocation.
type Outcome struct {
	InvocationID string
	Event        EventName
	Result       Result
	// Decider names the handler whose result won the merge; empty for neutral.
	Decider string
	Reports []Report
}

// Runner drives one hook invocation. The zero value is not usable; build
// one with NewRunner.
type Runner struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	sink        Sink
	logger      *log.Logger
	logLevel    slog.Level
	parallel    bool
	maxParallel int
	jsonOutput  bool
	tracer      trace.Tracer
	exit        func(int)
	newID       func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithIO replaces stdin, stdout and stderr. Nil arguments keep the default.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		if stdin != nil {
			r.stdin = stdin
		}
		if stdout != nil {
			r.stdout = stdout
		}
		if stderr != nil {
			r.stderr = stderr
		}
	}
}

// WithSink injects the logging sink.
func WithSink(s Sink) Option {
	return func(r *Runner) {
		if s != nil {
			r.sink = s
		}
	}
}

// WithParallel toggles concurrent execution of multiple handlers.
// Sequential mode still runs every handler.
func WithParallel(on bool) Option {
	return func(r *Runner) { r.parallel = on }
}

// WithMaxParallel bounds how many handlers run at once; n <= 0 means no bound.
func WithMaxParallel(n int) Option {
	return func(r *Runner) { r.maxParallel = n }
}

// WithJSONOutput also writes the merged decision to stdout as JSON.
func WithJSONOutput(on bool) Option {
	return func(r *Runner) { r.jsonOutput = on }
}

// WithLogLevel sets the level of the runner's stderr diagnostics.
func WithLogLevel(lv slog.Level) Option {
	return func(r *Runner) { r.logLevel = lv }
}

// WithTracerProvider traces invocations with tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Runner) {
		if tp != nil {
			r.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithExit replaces os.Exit, for tests and embedding.
func WithExit(fn func(int)) Option {
	return func(r *Runner) {
		if fn != nil {
			r.exit = fn
		}
	}
}

// NewRunner returns a Runner reading os.Stdin, writing os.Stdout/os.Stderr,
// running multiple handlers in parallel and logging nowhere.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		sink:     NopSink{},
		logLevel: log.LevelWarn,
		parallel: true,
		tracer:   otel.Tracer(tracerName),
		exit:     os.Exit,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = log.New(r.stderr)
	r.logger.SetLevel(r.logLevel)
	return r
}

// Execute runs handlers against env and merges their results. A nil env is
// a *UsageError; otherwise a non-nil error is always a *HandlerError for the
// first failing handler in submission order, and the Outcome still carries
// every report.
func (r *Runner) Execute(ctx context.Context, env *Envelope, handlers ...Handler) (Outcome, error) {
	if env == nil {
		return Outcome{}, usageErrorf("Execute", "nil envelope")
	}
	ev := Classify(env)
	out := Outcome{
		InvocationID: r.newID(),
		Event:        ev.Name(),
		Reports:      make([]Report, len(handlers)),
	}

	ctx, span := r.tracer.Start(ctx, "hooks.run", trace.WithAttributes(
		attribute.String("hook.event", string(out.Event)),
		attribute.String("hook.invocation_id", out.InvocationID),
		attribute.Int("hook.handlers", len(handlers)),
	))
	defer span.End()

	if _, generic := ev.(*GenericEvent); generic {
		if s, ok := suggestEvent(string(out.Event)); ok {
			r.logger.Debug("unknown event %q (did you mean %q?); handlers get the generic view", out.Event, s)
		} else {
			r.logger.Debug("unknown event %q; handlers get the generic view", out.Event)
		}
	}

	if len(handlers) == 1 || !r.parallel {
		for i, h := range handlers {
			out.Reports[i] = r.invoke(ctx, ev, out.InvocationID, i, h)
		}
	} else {
		var g errgroup.Group
		if r.maxParallel > 0 {
			g.SetLimit(r.maxParallel)
		}
		for i, h := range handlers {
			i, h := i, h
			g.Go(func() error {
				out.Reports[i] = r.invoke(ctx, ev, out.InvocationID, i, h)
				return nil
			})
		}
		// Handlers report through their own slot; Wait only joins.
		_ = g.Wait()
	}

	for _, rep := range out.Reports {
		if rep.Err != nil {
			span.RecordError(rep.Err)
			span.SetStatus(codes.Error, "handler failed")
			r.sink.Write(string(out.Event), runnerHook, fmt.Sprintf("invocation=%s failed: %v", out.InvocationID, rep.Err))
			return out, rep.Err
		}
	}

	results := make([]Result, len(out.Reports))
	for i, rep := range out.Reports {
		results[i] = rep.Result
	}
	out.Result = Merge(results...)
	if out.Result.Decision != DecisionNeutral {
		for _, rep := range out.Reports {
			if rep.Result.Decision == out.Result.Decision {
				out.Decider = rep.Handler
				break
			}
		}
	}
	if out.Result.Decision == DecisionBlock && out.Result.Reason == "" {
		out.Result.Reason = "blocked by hook " + out.Decider
	}

	span.SetAttributes(attribute.String("hook.decision", out.Result.Decision.String()))
	r.sink.Write(string(out.Event), runnerHook, fmt.Sprintf("invocation=%s decision=%s decider=%s reason=%q",
		out.InvocationID, out.Result.Decision, out.Decider, out.Result.Reason))
	return out, nil
}

// invoke runs one handler, converting errors, panics and invalid decisions
// into a *HandlerError on the report.
func (r *Runner) invoke(ctx context.Context, ev Event, invocationID string, i int, h Handler) (rep Report) {
	name := h.label(i)
	rep.Handler = name

	ctx, span := r.tracer.Start(ctx, "hooks.handler", trace.WithAttributes(
		attribute.String("hook.event", string(ev.Name())),
		attribute.String("hook.handler", name),
		attribute.Int("hook.index", i),
		attribute.String("hook.invocation_id", invocationID),
	))
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			rep.Result = Result{}
			rep.Err = &HandlerError{Handler: name, Index: i, Err: panicError(p), Panicked: true}
		}
		rep.Duration = time.Since(start)

		if rep.Err != nil {
			span.RecordError(rep.Err)
			span.SetStatus(codes.Error, rep.Err.Error())
			r.logger.Debug("hook %s failed after %s: %v", name, rep.Duration, rep.Err)
			r.sink.Write(string(ev.Name()), name, fmt.Sprintf("invocation=%s error=%q", invocationID, rep.Err.Error()))
		} else {
			span.SetAttributes(attribute.String("hook.decision", rep.Result.Decision.String()))
			r.logger.Debug("hook %s returned %s in %s", name, rep.Result.Decision, rep.Duration)
			r.sink.Write(string(ev.Name()), name, fmt.Sprintf("invocation=%s decision=%s reason=%q",
				invocationID, rep.Result.Decision, rep.Result.Reason))
		}
		span.End()
	}()

	if h.Fn == nil {
		rep.Err = &HandlerError{Handler: name, Index: i, Err: errors.New("nil handler function")}
		return rep
	}

	res, err := h.Fn(ctx, ev)
	if err != nil {
		rep.Err = &HandlerError{Handler: name, Index: i, Err: err}
		return rep
	}
	if !res.Decision.Valid() {
		rep.Err = &HandlerError{Handler: name, Index: i, Err: fmt.Errorf("invalid decision %d", int(res.Decision))}
		return rep
	}
	rep.Result = res
	return rep
}

func panicError(p any) error {
	if err, ok := p.(error); ok {
		return err
	}
	return fmt.Errorf("%v", p)
}

// Run performs a whole invocation: read and parse stdin, run handlers,
// write the host-facing output and return the exit code. It never exits.
func (r *Runner) Run(ctx context.Context, handlers ...Handler) int {
	out := newRenderer(r.stderr)

	env, err := ReadEnvelope(r.stdin)
	if err != nil {
		out.fatal("parse error", err.Error())
		r.sink.Write("unknown", runnerHook, "parse error: "+err.Error())
		return ExitParseError
	}

	outcome, err := r.Execute(ctx, env, handlers...)
	if err != nil {
		var usage *UsageError
		if errors.As(err, &usage) {
			out.fatal("usage error", err.Error())
			return ExitUsageError
		}
		out.fatal("hook error", err.Error())
		return ExitHandlerError
	}

	if r.jsonOutput {
		if err := writeJSON(r.stdout, outcome.Result); err != nil {
			r.logger.Warn("%v", err)
		}
	}

	return r.exitFor(out, outcome.Result)
}

// exitFor writes the reason and maps the merged decision to an exit code.
func (r *Runner) exitFor(out *renderer, res Result) int {
	if res.Decision == DecisionBlock {
		out.block(res.Reason)
		return ExitBlock
	}
	if res.Reason != "" {
		out.note(res.Reason)
	}
	return ExitOK
}

// Exit runs the invocation and terminates the process with its exit code.
func (r *Runner) Exit(ctx context.Context, handlers ...Handler) {
	r.exit(r.Run(ctx, handlers...))
}

// ExitCode maps an Execute result to the exit code Run would return.
func ExitCode(outcome Outcome, err error) int {
	if err != nil {
		var perr *ParseError
		var usage *UsageError
		switch {
		case errors.As(err, &perr):
			return ExitParseError
		case errors.As(err, &usage):
			return ExitUsageError
		default:
			return ExitHandlerError
		}
	}
	if outcome.Result.Decision == DecisionBlock {
		return ExitBlock
	}
	return ExitOK
}
