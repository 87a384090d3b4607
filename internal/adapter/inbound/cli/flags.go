package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/i2y/orchestrate/internal/domain"
)

// parseArgs turns repeated key=value pairs into tool arguments. Values that
// parse as JSON keep their type; anything else is a string.
func parseArgs(pairs []string) (map[string]any, error) {
	args := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, &domain.ParameterError{Message: fmt.Sprintf("invalid argument %q, expected key=value", p)}
		}
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err == nil {
			args[k] = decoded
		} else {
			args[k] = v
		}
	}
	return args, nil
}

// parseEntries turns repeated key=value pairs into string fields.
func parseEntries(pairs []string) (map[string]string, error) {
	fields := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, &domain.ParameterError{Message: fmt.Sprintf("invalid entry %q, expected key=value", p)}
		}
		fields[k] = v
	}
	return fields, nil
}
