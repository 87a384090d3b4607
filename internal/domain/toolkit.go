package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

type ToolkitKind string

const ToolkitKindMCP ToolkitKind = "mcp"

func ParseToolkitKind(s string) (ToolkitKind, error) {
	if ToolkitKind(strings.ToLower(s)) != ToolkitKindMCP {
		return "", &ParameterError{Message: fmt.Sprintf("unsupported toolkit kind: %s", s)}
	}
	return ToolkitKindMCP, nil
}

// MCPToolkit is the mcp section of a toolkit payload.
type MCPToolkit struct {
	Source  string   `json:"source"`
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args"`
	URL     string   `json:"url,omitempty"`
	Tools   []string `json:"tools"`
	// Connections maps sanitized runtime app ids to backend connection ids.
	Connections map[string]string `json:"connections"`
}

// ToolkitSpec is the payload that creates a toolkit.
type ToolkitSpec struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	MCP         MCPToolkit `json:"mcp"`
}

func (t *ToolkitSpec) Validate() error {
	if err := notBlank("name", t.Name, true); err != nil {
		return err
	}
	if err := notBlank("description", t.Description, true); err != nil {
		return err
	}
	if t.MCP.Command == "" && t.MCP.URL == "" {
		return newValidationError("mcp", "either a command or a url is required")
	}
	return nil
}

// ParseCommand splits a server command given either as a JSON list of
// strings or as a whitespace separated line.
func ParseCommand(s string) (string, []string, error) {
	var parts []string
	if err := json.Unmarshal([]byte(s), &parts); err != nil {
		parts = strings.Fields(s)
	}
	if len(parts) == 0 {
		return "", nil, &ParameterError{Message: "command must not be empty"}
	}
	return parts[0], parts[1:], nil
}
