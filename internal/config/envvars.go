// ABOUTME: Environment variable expansion in config string fields
// ABOUTME: Replaces ${VAR} patterns with os.Getenv values; unset vars become empty

package config

import (
	"os"
	"regexp"
)

var envVarPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// ResolveEnvVars expands ${VAR} patterns in the path-like fields of Settings.
func ResolveEnvVars(s *Settings) {
	s.LogDir = expandEnv(s.LogDir)
	s.OTLPEndpoint = expandEnv(s.OTLPEndpoint)
	s.Guard.AuditFile = expandEnv(s.Guard.AuditFile)

	for i, p := range s.Guard.SensitivePaths {
		s.Guard.SensitivePaths[i] = expandEnv(p)
	}
}

// expandEnv replaces ${VAR} with os.Getenv(VAR). Unset vars become "".
func expandEnv(s string) string {
	if s == "" {
		return s
	}
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
