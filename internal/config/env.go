package config

import (
	"os"
	"regexp"
	"strings"
)

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::([^}]*))?\}`)

// ExpandEnv replaces ${VAR} and ${VAR:default} references with environment
// variable values. An unset variable without a default expands to the empty
// string, matching shell behavior.
func ExpandEnv(s string) string {
	return envRefPattern.ReplaceAllStringFunc(s, func(ref string) string {
		groups := envRefPattern.FindStringSubmatch(ref)
		name, fallback := groups[1], groups[2]

		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		return fallback
	})
}

// ExpandEnvStrict is like ExpandEnv but reports which referenced variables
// were unset and had no default.
func ExpandEnvStrict(s string) (string, []string) {
	var missing []string
	expanded := envRefPattern.ReplaceAllStringFunc(s, func(ref string) string {
		groups := envRefPattern.FindStringSubmatch(ref)
		name, fallback := groups[1], groups[2]

		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		if fallback == "" && !strings.Contains(ref, ":") {
			missing = append(missing, name)
		}
		return fallback
	})
	return expanded, missing
}
