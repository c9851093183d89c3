// ABOUTME: Tests for the runner: exit codes, stderr contract, concurrency, sinks and spans
// ABOUTME: Drives Runner.Run through WithIO with in-memory stdin/stdout/stderr

package hooks

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const bashRmPayload = `{"eventName":"PreToolUse","toolName":"Bash","toolInput":{"command":"rm -rf /"}}`

type invocation struct {
	code   int
	stdout string
	stderr string
}

func runPayload(t *testing.T, payload string, opts []Option, handlers ...Handler) invocation {
	t.Helper()
	var stdout, stderr bytes.Buffer
	opts = append([]Option{WithIO(strings.NewReader(payload), &stdout, &stderr)}, opts...)
	r := NewRunner(opts...)
	code := r.Run(context.Background(), handlers...)
	return invocation{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func blockDangerous(_ context.Context, ev Event) (Result, error) {
	pre, ok := ev.(*PreToolUseEvent)
	if !ok || pre.ToolName() != "Bash" {
		return Neutral(), nil
	}
	if strings.Contains(pre.InputString("command", ""), "rm -rf /") {
		return Block("Dangerous command blocked"), nil
	}
	return Neutral(), nil
}

func TestRun_BlockWinsOverApprove(t *testing.T) {
	t.Parallel()

	got := runPayload(t, bashRmPayload, nil,
		Named("guard", blockDangerous),
		Simple("approver", func(Event) Result { return Approve("looks fine") }),
	)
	if got.code != ExitBlock {
		t.Errorf("code = %d, want %d", got.code, ExitBlock)
	}
	if !strings.Contains(got.stderr, "Dangerous command blocked") {
		t.Errorf("stderr = %q, want block reason", got.stderr)
	}
	if strings.Contains(got.stderr, "looks fine") {
		t.Errorf("stderr = %q, approve reason must not be shown on block", got.stderr)
	}
	if got.stdout != "" {
		t.Errorf("stdout = %q, want empty without JSON mode", got.stdout)
	}
}

func TestRun_ApproveAndNeutral(t *testing.T) {
	t.Parallel()

	payload := `{"hook_event_name":"PreToolUse","tool_name":"Bash","tool_input":{"command":"ls"}}`

	approved := runPayload(t, payload, nil, Named("guard", blockDangerous), Simple("ok", func(Event) Result { return Approve("validated") }))
	if approved.code != ExitOK {
		t.Errorf("approve code = %d, want %d", approved.code, ExitOK)
	}
	if strings.TrimSpace(approved.stderr) != "validated" {
		t.Errorf("approve stderr = %q, want %q", approved.stderr, "validated")
	}

	neutral := runPayload(t, payload, nil, Named("guard", blockDangerous))
	if neutral.code != ExitOK || neutral.stderr != "" {
		t.Errorf("neutral = %+v, want code 0 and empty stderr", neutral)
	}

	none := runPayload(t, payload, nil)
	if none.code != ExitOK {
		t.Errorf("no handlers code = %d, want %d", none.code, ExitOK)
	}
}

func TestRun_ParseErrorRunsNoHandler(t *testing.T) {
	t.Parallel()

	payloads := []string{"not json", "", "[1]", `{"tool_name":"Bash"}`, strings.Repeat("[", MaxInputLen)}
	for _, payload := range payloads {
		var calls atomic.Int32
		h := Simple("counter", func(Event) Result {
			calls.Add(1)
			return Neutral()
		})
		got := runPayload(t, payload, nil, h)
		if got.code != ExitParseError {
			t.Errorf("payload %.20q: code = %d, want %d", payload, got.code, ExitParseError)
		}
		if !strings.HasPrefix(got.stderr, "parse error: ") {
			t.Errorf("payload %.20q: stderr = %q", payload, got.stderr)
		}
		if calls.Load() != 0 {
			t.Errorf("payload %.20q: handler invoked %d times", payload, calls.Load())
		}
	}
}

func TestRun_HandlerErrorIsNotABlock(t *testing.T) {
	t.Parallel()

	failing := Named("flaky", func(context.Context, Event) (Result, error) {
		return Result{}, errors.New("database unreachable")
	})
	got := runPayload(t, bashRmPayload, nil, failing, Named("guard", blockDangerous))
	if got.code != ExitHandlerError {
		t.Errorf("code = %d, want %d", got.code, ExitHandlerError)
	}
	if !strings.Contains(got.stderr, `"flaky"`) || !strings.Contains(got.stderr, "database unreachable") {
		t.Errorf("stderr = %q, want handler name and cause", got.stderr)
	}
	if strings.Contains(got.stderr, "Dangerous command blocked") {
		t.Errorf("stderr = %q, a failed run must not print a block reason", got.stderr)
	}
}

func TestRun_PanicIsRecovered(t *testing.T) {
	t.Parallel()

	var finished atomic.Bool
	panicky := Simple("panicky", func(Event) Result { panic("boom") })
	slow := Simple("slow", func(Event) Result {
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
		return Approve("")
	})

	got := runPayload(t, bashRmPayload, nil, panicky, slow)
	if got.code != ExitHandlerError {
		t.Errorf("code = %d, want %d", got.code, ExitHandlerError)
	}
	if !strings.Contains(got.stderr, `hook "panicky" panicked: boom`) {
		t.Errorf("stderr = %q", got.stderr)
	}
	if !finished.Load() {
		t.Error("sibling handler did not run to completion")
	}
}

func TestRun_UsageError(t *testing.T) {
	t.Parallel()

	wrongView := Simple("wrong_view", func(ev Event) Result {
		MustStop(ev)
		return Neutral()
	})
	got := runPayload(t, bashRmPayload, nil, wrongView)
	if got.code != ExitUsageError {
		t.Errorf("panicking usage code = %d, want %d", got.code, ExitUsageError)
	}
	if !strings.HasPrefix(got.stderr, "usage error: ") {
		t.Errorf("stderr = %q", got.stderr)
	}

	returned := Named("as_view", func(_ context.Context, ev Event) (Result, error) {
		if _, err := AsNotification(ev); err != nil {
			return Result{}, err
		}
		return Neutral(), nil
	})
	if got := runPayload(t, bashRmPayload, nil, returned); got.code != ExitUsageError {
		t.Errorf("returned usage code = %d, want %d", got.code, ExitUsageError)
	}
}

func TestRun_InvalidDecisionAndNilFunc(t *testing.T) {
	t.Parallel()

	bogus := Simple("bogus", func(Event) Result { return Result{Decision: Decision(42)} })
	if got := runPayload(t, bashRmPayload, nil, bogus); got.code != ExitHandlerError {
		t.Errorf("invalid decision code = %d, want %d", got.code, ExitHandlerError)
	}

	got := runPayload(t, bashRmPayload, nil, Handler{})
	if got.code != ExitHandlerError {
		t.Errorf("nil func code = %d, want %d", got.code, ExitHandlerError)
	}
	if !strings.Contains(got.stderr, "handler#0") {
		t.Errorf("stderr = %q, want fallback handler label", got.stderr)
	}
}

func TestRun_EmptyBlockReasonNamesDecider(t *testing.T) {
	t.Parallel()

	got := runPayload(t, bashRmPayload, nil, Simple("silent", func(Event) Result { return Block("") }))
	if got.code != ExitBlock {
		t.Errorf("code = %d, want %d", got.code, ExitBlock)
	}
	if strings.TrimSpace(got.stderr) != "blocked by hook silent" {
		t.Errorf("stderr = %q", got.stderr)
	}
}

func TestRun_JSONOutput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler Handler
		want    string
	}{
		{"block", Named("guard", blockDangerous), `{"decision":"block","reason":"Dangerous command blocked"}`},
		{"approve", Simple("ok", func(Event) Result { return Approve("fine") }), `{"decision":"approve","reason":"fine"}`},
		{"neutral", Simple("none", func(Event) Result { return Neutral() }), `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := runPayload(t, bashRmPayload, []Option{WithJSONOutput(true)}, tt.handler)
			if strings.TrimSpace(got.stdout) != tt.want {
				t.Errorf("stdout = %q, want %q", got.stdout, tt.want)
			}
		})
	}
}

func TestRun_ParallelHandlersOverlap(t *testing.T) {
	t.Parallel()

	const n = 4
	var wg sync.WaitGroup
	wg.Add(n)
	barrier := func(Event) Result {
		wg.Done()
		wg.Wait()
		return Neutral()
	}
	handlers := make([]Handler, n)
	for i := range handlers {
		handlers[i] = Simple("", barrier)
	}

	done := make(chan invocation, 1)
	go func() { done <- runPayload(t, bashRmPayload, nil, handlers...) }()

	select {
	case got := <-done:
		if got.code != ExitOK {
			t.Errorf("code = %d, want %d", got.code, ExitOK)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("handlers did not run concurrently")
	}
}

func TestRun_MaxParallelBoundsConcurrency(t *testing.T) {
	t.Parallel()

	var running, peak atomic.Int32
	track := func(Event) Result {
		cur := running.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return Neutral()
	}
	handlers := make([]Handler, 8)
	for i := range handlers {
		handlers[i] = Simple("tracked", track)
	}

	runPayload(t, bashRmPayload, []Option{WithMaxParallel(2)}, handlers...)
	if peak.Load() > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak.Load())
	}

	running.Store(0)
	peak.Store(0)
	runPayload(t, bashRmPayload, []Option{WithParallel(false)}, handlers...)
	if peak.Load() != 1 {
		t.Errorf("sequential peak concurrency = %d, want 1", peak.Load())
	}
}

func TestExecute_OutcomeReports(t *testing.T) {
	t.Parallel()

	env := mustParse(t, bashRmPayload)
	r := NewRunner(WithIO(nil, &bytes.Buffer{}, &bytes.Buffer{}))
	out, err := r.Execute(context.Background(), env,
		Simple("first", func(Event) Result { return Approve("a") }),
		Named("guard", blockDangerous),
		Simple("third", func(Event) Result { return Block("second block") }),
	)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Event != PreToolUse {
		t.Errorf("Event = %q", out.Event)
	}
	if out.InvocationID == "" {
		t.Error("InvocationID is empty")
	}
	if out.Decider != "guard" || out.Result.Reason != "Dangerous command blocked" {
		t.Errorf("Decider = %q, Reason = %q; want first blocker in submission order", out.Decider, out.Result.Reason)
	}
	names := []string{"first", "guard", "third"}
	for i, rep := range out.Reports {
		if rep.Handler != names[i] {
			t.Errorf("Reports[%d].Handler = %q, want %q", i, rep.Handler, names[i])
		}
	}
	if code := ExitCode(out, err); code != ExitBlock {
		t.Errorf("ExitCode = %d, want %d", code, ExitBlock)
	}
}

func TestExecute_FirstSubmittedBlockerWinsWhenItFinishesLast(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		finished []string
	)
	done := func(name string) {
		mu.Lock()
		finished = append(finished, name)
		mu.Unlock()
	}

	fastDone := make(chan struct{})
	slow := Simple("slow_block", func(Event) Result {
		select {
		case <-fastDone:
		case <-time.After(5 * time.Second):
		}
		done("slow_block")
		return Block("first reason")
	})
	fast := Simple("fast_block", func(Event) Result {
		done("fast_block")
		close(fastDone)
		return Block("second reason")
	})

	r := NewRunner(WithIO(nil, &bytes.Buffer{}, &bytes.Buffer{}), WithParallel(true))
	out, err := r.Execute(context.Background(), mustParse(t, bashRmPayload), slow, fast)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := strings.Join(finished, ","); got != "fast_block,slow_block" {
		t.Fatalf("completion order = %s, want fast_block,slow_block", got)
	}
	if out.Decider != "slow_block" {
		t.Errorf("Decider = %q, want %q", out.Decider, "slow_block")
	}
	if out.Result.Reason != "first reason" {
		t.Errorf("Reason = %q, want %q", out.Result.Reason, "first reason")
	}
}

func TestExecute_NilEnvelopeIsUsageError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	h := Simple("counter", func(Event) Result {
		calls.Add(1)
		return Neutral()
	})
	out, err := NewRunner(WithIO(nil, &bytes.Buffer{}, &bytes.Buffer{})).Execute(context.Background(), nil, h)

	var usage *UsageError
	if !errors.As(err, &usage) {
		t.Fatalf("err = %v, want *UsageError", err)
	}
	if usage.Op != "Execute" {
		t.Errorf("Op = %q, want %q", usage.Op, "Execute")
	}
	if code := ExitCode(out, err); code != ExitUsageError {
		t.Errorf("ExitCode = %d, want %d", code, ExitUsageError)
	}
	if calls.Load() != 0 {
		t.Errorf("handler invoked %d times", calls.Load())
	}
}

func TestExitCode_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{&ParseError{Kind: ErrKindSyntax}, ExitParseError},
		{&HandlerError{Handler: "h", Err: &UsageError{Op: "MustStop", Msg: "x"}}, ExitUsageError},
		{&HandlerError{Handler: "h", Err: errors.New("io")}, ExitHandlerError},
	}
	for _, tt := range tests {
		if got := ExitCode(Outcome{}, tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
	if got := ExitCode(Outcome{Result: Approve("x")}, nil); got != ExitOK {
		t.Errorf("ExitCode(approve) = %d, want %d", got, ExitOK)
	}
}

func TestRun_SinkReceivesEveryHandler(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	seen := map[string]string{}
	sink := SinkFunc(func(event, hook, message string) {
		mu.Lock()
		defer mu.Unlock()
		seen[hook] = event + " " + message
	})

	runPayload(t, bashRmPayload, []Option{WithSink(sink)},
		Named("guard", blockDangerous),
		Simple("approver", func(Event) Result { return Approve("") }),
	)

	for _, hook := range []string{"guard", "approver", "runner"} {
		msg, ok := seen[hook]
		if !ok {
			t.Errorf("sink got nothing for %q", hook)
			continue
		}
		if !strings.HasPrefix(msg, "PreToolUse ") {
			t.Errorf("sink[%q] = %q, want PreToolUse event", hook, msg)
		}
	}
	if !strings.Contains(seen["runner"], "decision=block") || !strings.Contains(seen["runner"], "decider=guard") {
		t.Errorf("runner message = %q", seen["runner"])
	}
}

func TestRun_UnknownEventUsesGenericView(t *testing.T) {
	t.Parallel()

	var gotType string
	h := Simple("probe", func(ev Event) Result {
		if _, ok := ev.(*GenericEvent); ok {
			gotType = "generic"
		}
		return Neutral()
	})
	got := runPayload(t, `{"hook_event_name":"PreToolUse2","tool_name":"Bash"}`, []Option{WithLogLevel(slog.LevelDebug)}, h)
	if got.code != ExitOK {
		t.Errorf("code = %d, want %d", got.code, ExitOK)
	}
	if gotType != "generic" {
		t.Error("unknown event did not get the generic view")
	}
	if !strings.Contains(got.stderr, `did you mean "PreToolUse"`) {
		t.Errorf("stderr = %q, want a suggestion at debug level", got.stderr)
	}
}

func TestExecute_Spans(t *testing.T) {
	t.Parallel()

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	got := runPayload(t, bashRmPayload, []Option{WithTracerProvider(tp)},
		Named("guard", blockDangerous),
		Named("broken", func(context.Context, Event) (Result, error) { return Result{}, errors.New("nope") }),
	)
	if got.code != ExitHandlerError {
		t.Fatalf("code = %d, want %d", got.code, ExitHandlerError)
	}

	spans := rec.Ended()
	var runs, handlers int
	for _, s := range spans {
		switch s.Name() {
		case "hooks.run":
			runs++
			if s.Status().Code != codes.Error {
				t.Errorf("run span status = %v, want Error", s.Status().Code)
			}
		case "hooks.handler":
			handlers++
		}
	}
	if runs != 1 || handlers != 2 {
		t.Errorf("spans: %d run, %d handler; want 1 and 2", runs, handlers)
	}
}

func TestWithExit(t *testing.T) {
	t.Parallel()

	var code int
	r := NewRunner(
		WithIO(strings.NewReader(bashRmPayload), &bytes.Buffer{}, &bytes.Buffer{}),
		WithExit(func(c int) { code = c }),
	)
	r.Exit(context.Background(), Named("guard", blockDangerous))
	if code != ExitBlock {
		t.Errorf("exit code = %d, want %d", code, ExitBlock)
	}
}

func TestHandlerNames(t *testing.T) {
	t.Parallel()

	if got := Func(blockDangerous).Name; got != "blockDangerous" {
		t.Errorf("Func name = %q, want %q", got, "blockDangerous")
	}
	if got := funcName(nil); got != "<nil>" {
		t.Errorf("funcName(nil) = %q", got)
	}
}
