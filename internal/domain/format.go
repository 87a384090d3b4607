package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SpecFormat is the encoding of a spec file.
type SpecFormat string

const (
	FormatJSON SpecFormat = "json"
	FormatYAML SpecFormat = "yaml"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (SpecFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", &ValidationError{Field: "file", Message: fmt.Sprintf("%s: file must end in .json, .yaml, or .yml", path)}
}

func decode(data []byte, format SpecFormat, v any) error {
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		return dec.Decode(v)
	case FormatYAML:
		return yaml.Unmarshal(data, v)
	}
	return fmt.Errorf("unsupported format %q", format)
}

// decodeKind reads only the discriminator field of a document.
func decodeKind(data []byte, format SpecFormat) (string, error) {
	var head struct {
		Kind string `json:"kind" yaml:"kind"`
	}
	if err := decode(data, format, &head); err != nil {
		return "", err
	}
	return strings.TrimSpace(head.Kind), nil
}

// MarshalSpec renders a spec value in the given format.
func MarshalSpec(v any, format SpecFormat) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(v, "", "  ")
	case FormatYAML:
		return yaml.Marshal(v)
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}
