// ABOUTME: Standard filesystem paths for claude-hooks configuration and logs
// ABOUTME: Resolves ~/.claude-hooks/ for global and .claude-hooks/ for project-local paths

package config

import (
	"os"
	"path/filepath"
)

const (
	globalDirName  = ".claude-hooks"
	projectDirName = ".claude-hooks"
	configFileName = "hooks.yaml"

	// EnvHome overrides the global directory.
	EnvHome = "CLAUDE_HOOKS_HOME"
	// EnvProjectDir is set by the host to the project the session runs in.
	EnvProjectDir = "CLAUDE_PROJECT_DIR"
)

// GlobalDir returns the user-global config directory (~/.claude-hooks/),
// or $CLAUDE_HOOKS_HOME when set.
func GlobalDir() string {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", globalDirName)
	}
	return filepath.Join(home, globalDirName)
}

// ProjectDir returns the project-local config directory.
func ProjectDir(projectRoot string) string {
	return filepath.Join(projectRoot, projectDirName)
}

// GlobalConfigFile returns the path to the global hooks.yaml.
func GlobalConfigFile() string {
	return filepath.Join(GlobalDir(), configFileName)
}

// ProjectConfigFile returns the path to the project-local hooks.yaml.
func ProjectConfigFile(projectRoot string) string {
	return filepath.Join(ProjectDir(projectRoot), configFileName)
}

// DefaultAuditFile returns the audit log used when guard.audit_file is unset.
func DefaultAuditFile() string {
	return filepath.Join(GlobalDir(), "audit.jsonl")
}

// ProjectRoot returns $CLAUDE_PROJECT_DIR when the host set it, otherwise
// the working directory.
func ProjectRoot() string {
	if dir := os.Getenv(EnvProjectDir); dir != "" {
		return dir
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}
