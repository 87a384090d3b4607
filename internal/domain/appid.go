package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var nonAlnumRun = regexp.MustCompile(`[^A-Za-z0-9]+`)

// SanitizeAppID turns an app id into the form used in environment variable
// names: every run of non-alphanumeric characters becomes a single '_'.
func SanitizeAppID(appID string) string {
	return nonAlnumRun.ReplaceAllString(appID, "_")
}

// AppIDMapping maps the connection name a tool uses at runtime to the app id
// of a locally configured connection.
type AppIDMapping struct {
	RuntimeID string
	LocalID   string
}

// ParseAppIDMapping parses "runtime=local". A literal '=' inside either side
// is written as `\=`. Without an unescaped '=' both sides are the same id.
func ParseAppIDMapping(s string) (AppIDMapping, error) {
	parts := splitUnescaped(s, '=')
	if len(parts) > 2 {
		return AppIDMapping{}, &ParameterError{Message: fmt.Sprintf(
			"the provided app-id '%s' contains multiple equal signs, use '\\=' to escape literal equal signs", s)}
	}
	for i := range parts {
		parts[i] = strings.ReplaceAll(parts[i], `\=`, "=")
	}
	if len(parts) == 1 {
		if strings.TrimSpace(parts[0]) == "" {
			return AppIDMapping{}, &ParameterError{Message: "app-id must not be empty"}
		}
		return AppIDMapping{RuntimeID: parts[0], LocalID: parts[0]}, nil
	}
	runtime, local := parts[0], parts[1]
	if strings.TrimSpace(runtime) == "" || strings.TrimSpace(local) == "" {
		return AppIDMapping{}, &ParameterError{Message: fmt.Sprintf(
			"the provided app-id '%s' is not valid, both sides of '=' must be set", s)}
	}
	return AppIDMapping{RuntimeID: runtime, LocalID: local}, nil
}

func splitUnescaped(s string, sep byte) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == sep && (i == 0 || s[i-1] != '\\') {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
