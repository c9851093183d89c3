// ABOUTME: Settings loading with global + project hooks.yaml deep merge
// ABOUTME: YAML-based configuration via gopkg.in/yaml.v3; env vars override files

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings holds the merged runner configuration. OTLPEndpoint, when set,
// exports invocation spans over OTLP/HTTP.
type Settings struct {
	// Parallel runs multiple handlers concurrently; nil means true.
	Parallel     *bool         `yaml:"parallel,omitempty"`
	MaxParallel  int           `yaml:"max_parallel,omitempty"`
	LogLevel     string        `yaml:"log_level,omitempty"`
	LogDir       string        `yaml:"log_dir,omitempty"`
	LogMaxWidth  int           `yaml:"log_max_width,omitempty"`
	JSONOutput   bool          `yaml:"json_output,omitempty"`
	OTLPEndpoint string        `yaml:"otlp_endpoint,omitempty"`
	Guard        GuardSettings `yaml:"guard,omitempty"`
	Commands     []CommandDef  `yaml:"commands,omitempty"`
}

// CommandDef declares an external command run as a handler. Event and
// Matcher (a regex over the tool name) narrow when it runs; empty means all.
type CommandDef struct {
	Name    string        `yaml:"name,omitempty"`
	Event   string        `yaml:"event,omitempty"`
	Matcher string        `yaml:"matcher,omitempty"`
	Command string        `yaml:"command"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// GuardSettings configures the built-in guard handlers. Deny and Allow hold
// tool rules like "Bash(rm *)" or "Edit(/src/**)".
type GuardSettings struct {
	DestructivePatterns []string `yaml:"destructive_patterns,omitempty"`
	SensitivePaths      []string `yaml:"sensitive_paths,omitempty"`
	Deny                []string `yaml:"deny,omitempty"`
	Allow               []string `yaml:"allow,omitempty"`
	AuditFile           string   `yaml:"audit_file,omitempty"`
}

// ParallelEnabled reports whether handlers should run concurrently.
func (s *Settings) ParallelEnabled() bool {
	return s.Parallel == nil || *s.Parallel
}

// Load reads and merges global and project-local hooks.yaml, applies
// environment overrides and expands ${VAR} references.
// Project settings override global settings.
func Load(projectRoot string) (*Settings, error) {
	global, err := loadFile(GlobalConfigFile())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading global config: %w", err)
	}

	project, err := loadFile(ProjectConfigFile(projectRoot))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	merged := merge(global, project)
	if err := ApplyEnv(merged); err != nil {
		return nil, err
	}
	ResolveEnvVars(merged)
	return merged, nil
}

// loadFile reads Settings from a YAML file. Returns empty Settings and the
// os error if the file does not exist.
func loadFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Settings{}, err
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &s, nil
}

// merge deep-merges project settings onto global settings.
// Non-zero project values override global values.
func merge(global, project *Settings) *Settings {
	if global == nil {
		global = &Settings{}
	}
	if project == nil {
		return global
	}

	result := *global

	if project.Parallel != nil {
		v := *project.Parallel
		result.Parallel = &v
	}
	if project.MaxParallel != 0 {
		result.MaxParallel = project.MaxParallel
	}
	if project.LogLevel != "" {
		result.LogLevel = project.LogLevel
	}
	if project.LogDir != "" {
		result.LogDir = project.LogDir
	}
	if project.LogMaxWidth != 0 {
		result.LogMaxWidth = project.LogMaxWidth
	}
	if project.JSONOutput {
		result.JSONOutput = true
	}
	if project.OTLPEndpoint != "" {
		result.OTLPEndpoint = project.OTLPEndpoint
	}

	// Pattern lists accumulate: a project can add guards but not drop global ones.
	result.Guard.DestructivePatterns = appendUnique(global.Guard.DestructivePatterns, project.Guard.DestructivePatterns)
	result.Guard.SensitivePaths = appendUnique(global.Guard.SensitivePaths, project.Guard.SensitivePaths)
	result.Guard.Deny = appendUnique(global.Guard.Deny, project.Guard.Deny)
	result.Guard.Allow = appendUnique(global.Guard.Allow, project.Guard.Allow)
	if project.Guard.AuditFile != "" {
		result.Guard.AuditFile = project.Guard.AuditFile
	}

	// Global commands run first, then the project's.
	if len(project.Commands) > 0 {
		result.Commands = append(append([]CommandDef(nil), global.Commands...), project.Commands...)
	}

	return &result
}

func appendUnique(base, extra []string) []string {
	if len(extra) == 0 {
		return base
	}
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, v := range list {
			if seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// Environment overrides, applied after files are merged.
const (
	EnvLogLevel = "CLAUDE_HOOKS_LOG_LEVEL"
	EnvLogDir   = "CLAUDE_HOOKS_LOG_DIR"
	EnvParallel = "CLAUDE_HOOKS_PARALLEL"
	EnvJSON     = "CLAUDE_HOOKS_JSON"
	EnvOTLP     = "CLAUDE_HOOKS_OTLP_ENDPOINT"
)

// ApplyEnv overlays CLAUDE_HOOKS_* environment variables onto s.
func ApplyEnv(s *Settings) error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		s.LogLevel = v
	}
	if v := os.Getenv(EnvLogDir); v != "" {
		s.LogDir = v
	}
	if v := os.Getenv(EnvOTLP); v != "" {
		s.OTLPEndpoint = v
	}
	if v := os.Getenv(EnvParallel); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvParallel, err)
		}
		s.Parallel = &b
	}
	if v := os.Getenv(EnvJSON); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvJSON, err)
		}
		s.JSONOutput = b
	}
	return nil
}
