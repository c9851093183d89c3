// ABOUTME: Process entry point for hook binaries: settings-driven runner plus os.Exit
// ABOUTME: Loads hooks.yaml (global + project) and wires the file sink and OTLP export

package hooks

import (
	"context"
	"os"

	"github.com/mauromedda/claude-hooks-go/internal/config"
	"github.com/mauromedda/claude-hooks-go/internal/log"
	"github.com/mauromedda/claude-hooks-go/internal/telemetry"
)

// Run is the one-call entry point for a hook binary:
//
//	func main() { hooks.Run(hooks.Func(bashGuard), hooks.Func(auditLog)) }
//
// It reads the event from stdin, runs the handlers, writes the verdict and
// exits the process. Extra options are applied after the settings file.
func Run(handlers ...Handler) {
	RunWith(nil, handlers...)
}

// RunWith is Run with options layered over the loaded settings.
func RunWith(opts []Option, handlers ...Handler) {
	warn := log.New(os.Stderr)
	s, err := config.Load(config.ProjectRoot())
	if err != nil {
		warn.Warn("ignoring hook settings: %v", err)
		s = &config.Settings{}
	}
	RunWithSettings(s, opts, handlers...)
}

// RunWithSettings is RunWith for binaries that already loaded hooks.yaml,
// so the file is read once per invocation. A nil s means defaults.
func RunWithSettings(s *config.Settings, opts []Option, handlers ...Handler) {
	if s == nil {
		s = &config.Settings{}
	}
	r, cleanup := newSettingsRunner(s, log.New(os.Stderr), opts)
	code := r.Run(context.Background(), handlers...)
	cleanup()
	r.exit(code)
}

// newSettingsRunner builds a runner from s with opts applied on top.
// Configuration problems are reported as warnings: they must not change the
// exit contract.
func newSettingsRunner(s *config.Settings, warn *log.Logger, opts []Option) (*Runner, func()) {
	settingsOpts, cleanup := settingsOptions(s, warn)
	return NewRunner(append(settingsOpts, opts...)...), cleanup
}

func settingsOptions(s *config.Settings, warn *log.Logger) ([]Option, func()) {
	opts := []Option{
		WithParallel(s.ParallelEnabled()),
		WithMaxParallel(s.MaxParallel),
		WithJSONOutput(s.JSONOutput),
	}

	if s.LogLevel != "" {
		lv, err := log.ParseLevel(s.LogLevel)
		if err != nil {
			warn.Warn("%v", err)
		}
		opts = append(opts, WithLogLevel(lv))
	}

	var closers []func()
	if s.LogDir != "" {
		fs, err := log.NewFileSink(s.LogDir, s.LogMaxWidth)
		if err != nil {
			warn.Warn("event log disabled: %v", err)
		} else {
			opts = append(opts, WithSink(fs))
			closers = append(closers, func() {
				if err := fs.Close(); err != nil {
					warn.Warn("closing event log: %v", err)
				}
			})
		}
	}

	if s.OTLPEndpoint != "" {
		tp, err := telemetry.NewTracerProvider(context.Background(), s.OTLPEndpoint, telemetry.ServiceName)
		if err != nil {
			warn.Warn("tracing disabled: %v", err)
		} else {
			opts = append(opts, WithTracerProvider(tp))
			closers = append(closers, func() {
				if err := telemetry.Shutdown(tp); err != nil {
					warn.Warn("flushing traces: %v", err)
				}
			})
		}
	}

	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}
	return opts, cleanup
}
