// ABOUTME: hookguard entry point: a ready-made hook binary for the agent host
// ABOUTME: Runs the built-in guards plus any external commands listed in hooks.yaml

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mauromedda/claude-hooks-go/internal/command"
	"github.com/mauromedda/claude-hooks-go/internal/config"
	"github.com/mauromedda/claude-hooks-go/internal/guard"
	"github.com/mauromedda/claude-hooks-go/internal/log"
	"github.com/mauromedda/claude-hooks-go/pkg/hooks"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	args := parseFlags()

	if args.version {
		fmt.Printf("hookguard %s (%s) built %s\n", version, commit, date)
		os.Exit(hooks.ExitOK)
	}

	opts, err := buildOptions(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hook error: %v\n", err)
		os.Exit(hooks.ExitHandlerError)
	}

	s := loadSettings(config.ProjectRoot())
	log.SetLevel(diagnosticLevel(args.logLevel, s))

	handlers, err := handlersFor(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hook error: %v\n", err)
		os.Exit(hooks.ExitHandlerError)
	}
	log.Debug("hookguard %s: %d handlers", version, len(handlers))

	hooks.RunWithSettings(s, opts, handlers...)
}

// buildOptions maps flags onto runner options; flags win over hooks.yaml.
func buildOptions(args cliArgs) ([]hooks.Option, error) {
	var opts []hooks.Option
	if args.sequential {
		opts = append(opts, hooks.WithParallel(false))
	}
	if args.json {
		opts = append(opts, hooks.WithJSONOutput(true))
	}
	if args.logLevel != "" {
		lv, err := log.ParseLevel(args.logLevel)
		if err != nil {
			return nil, err
		}
		opts = append(opts, hooks.WithLogLevel(lv))
	}
	return opts, nil
}

// loadSettings reads hooks.yaml once for both the runner and the guards.
// Unreadable settings fall back to defaults.
func loadSettings(projectRoot string) *config.Settings {
	s, err := config.Load(projectRoot)
	if err != nil {
		log.Warn("ignoring hook settings: %v", err)
		return &config.Settings{}
	}
	return s
}

// diagnosticLevel picks the stderr level: the flag, then log_level, then warn.
func diagnosticLevel(flagLevel string, s *config.Settings) slog.Level {
	name := s.LogLevel
	if flagLevel != "" {
		name = flagLevel
	}
	if name == "" {
		return log.LevelWarn
	}
	// Unknown names come back as warn; the runner reports them.
	lv, _ := log.ParseLevel(name)
	return lv
}

// handlersFor builds the guard handlers followed by the configured commands.
func handlersFor(s *config.Settings) ([]hooks.Handler, error) {
	handlers, err := guard.Handlers(s.Guard)
	if err != nil {
		return nil, err
	}
	cmds, err := command.Handlers(s.Commands)
	if err != nil {
		return nil, err
	}
	return append(handlers, cmds...), nil
}
