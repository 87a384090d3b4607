package domain

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// BindingKind names the execution mechanism of a tool.
type BindingKind string

const (
	BindingPython     BindingKind = "python"
	BindingOpenAPI    BindingKind = "openapi"
	BindingMCP        BindingKind = "mcp"
	BindingSkill      BindingKind = "skill"
	BindingClientSide BindingKind = "client_side"
)

// Binding holds exactly one non-nil execution mechanism.
type Binding struct {
	Python     *PythonBinding     `json:"python,omitempty" yaml:"python,omitempty"`
	OpenAPI    *OpenAPIBinding    `json:"openapi,omitempty" yaml:"openapi,omitempty"`
	MCP        *MCPBinding        `json:"mcp,omitempty" yaml:"mcp,omitempty"`
	Skill      *SkillBinding      `json:"skill,omitempty" yaml:"skill,omitempty"`
	ClientSide *ClientSideBinding `json:"client_side,omitempty" yaml:"client_side,omitempty"`
}

// BindingVisitor is implemented by code that handles every binding kind.
// Adding a kind adds a method here, so every handler fails to compile until
// it covers the new kind.
type BindingVisitor interface {
	VisitPython(*PythonBinding) error
	VisitOpenAPI(*OpenAPIBinding) error
	VisitMCP(*MCPBinding) error
	VisitSkill(*SkillBinding) error
	VisitClientSide(*ClientSideBinding) error
}

func (b Binding) set() []BindingKind {
	var kinds []BindingKind
	if b.Python != nil {
		kinds = append(kinds, BindingPython)
	}
	if b.OpenAPI != nil {
		kinds = append(kinds, BindingOpenAPI)
	}
	if b.MCP != nil {
		kinds = append(kinds, BindingMCP)
	}
	if b.Skill != nil {
		kinds = append(kinds, BindingSkill)
	}
	if b.ClientSide != nil {
		kinds = append(kinds, BindingClientSide)
	}
	return kinds
}

// Kind returns the kind of the single binding, or "" when the cardinality is wrong.
func (b Binding) Kind() BindingKind {
	kinds := b.set()
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// Validate enforces that exactly one binding is present and that it is well formed.
func (b Binding) Validate() error {
	kinds := b.set()
	if len(kinds) != 1 {
		return newValidationError("binding", "exactly one binding must be set, found %d", len(kinds))
	}
	switch kinds[0] {
	case BindingPython:
		return b.Python.Validate()
	case BindingOpenAPI:
		return b.OpenAPI.Validate()
	case BindingMCP:
		return b.MCP.Validate()
	case BindingSkill:
		return b.Skill.Validate()
	}
	return nil
}

// Accept dispatches to the visitor method of the single binding.
func (b Binding) Accept(v BindingVisitor) error {
	if err := b.Validate(); err != nil {
		return err
	}
	switch b.Kind() {
	case BindingPython:
		return v.VisitPython(b.Python)
	case BindingOpenAPI:
		return v.VisitOpenAPI(b.OpenAPI)
	case BindingMCP:
		return v.VisitMCP(b.MCP)
	case BindingSkill:
		return v.VisitSkill(b.Skill)
	default:
		return v.VisitClientSide(b.ClientSide)
	}
}

var functionRefPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*:[A-Za-z_][A-Za-z0-9_]*$`)

// PythonBinding points the remote runtime at a function by import path.
type PythonBinding struct {
	// Function is "package.module:function".
	Function     string   `json:"function" yaml:"function"`
	Requirements []string `json:"requirements,omitempty" yaml:"requirements,omitempty"`
	// Connections maps the runtime app id the tool expects to a backend connection id.
	Connections map[string]string `json:"connections,omitempty" yaml:"connections,omitempty"`
}

func (p *PythonBinding) Validate() error {
	if !functionRefPattern.MatchString(p.Function) {
		return newValidationError("binding.python.function", "invalid function reference %q, expected module.path:function", p.Function)
	}
	return nil
}

// OpenAPISecurityScheme is a resolved entry of components.securitySchemes.
type OpenAPISecurityScheme struct {
	Type             string         `json:"type" yaml:"type"`
	Scheme           string         `json:"scheme,omitempty" yaml:"scheme,omitempty"`
	In               string         `json:"in,omitempty" yaml:"in,omitempty"`
	Name             string         `json:"name,omitempty" yaml:"name,omitempty"`
	OpenIDConnectURL string         `json:"open_id_connect_url,omitempty" yaml:"open_id_connect_url,omitempty"`
	Flows            map[string]any `json:"flows,omitempty" yaml:"flows,omitempty"`
}

// OpenAPIBinding describes one HTTP operation.
type OpenAPIBinding struct {
	HTTPMethod        string                  `json:"http_method" yaml:"http_method"`
	HTTPPath          string                  `json:"http_path" yaml:"http_path"`
	SuccessStatusCode int                     `json:"success_status_code" yaml:"success_status_code"`
	Security          []OpenAPISecurityScheme `json:"security" yaml:"security"`
	Servers           []string                `json:"servers" yaml:"servers"`
	ConnectionID      string                  `json:"connection_id,omitempty" yaml:"connection_id,omitempty"`
}

// DefaultSuccessStatusCode is used when an operation does not name one.
const DefaultSuccessStatusCode = http.StatusOK

// NewOpenAPIBinding builds a validated binding. A zero success code means 200.
func NewOpenAPIBinding(method, path string, successStatusCode int, security []OpenAPISecurityScheme, servers []string) (*OpenAPIBinding, error) {
	if successStatusCode == 0 {
		successStatusCode = DefaultSuccessStatusCode
	}
	if security == nil {
		security = []OpenAPISecurityScheme{}
	}
	b := &OpenAPIBinding{
		HTTPMethod:        strings.ToUpper(method),
		HTTPPath:          path,
		SuccessStatusCode: successStatusCode,
		Security:          security,
		Servers:           servers,
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (o *OpenAPIBinding) Validate() error {
	switch strings.ToUpper(o.HTTPMethod) {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return newValidationError("binding.openapi.http_method", "unsupported http method %q", o.HTTPMethod)
	}
	if !strings.HasPrefix(o.HTTPPath, "/") {
		return newValidationError("binding.openapi.http_path", "http path %q must start with '/'", o.HTTPPath)
	}
	if len(o.Servers) != 1 {
		return newValidationError("binding.openapi.servers", "OpenAPI binding must include exactly one server, found %d", len(o.Servers))
	}
	return nil
}

// Server returns the single server URL.
func (o *OpenAPIBinding) Server() string {
	if len(o.Servers) == 0 {
		return ""
	}
	return o.Servers[0]
}

// MCPBinding points at a tool exposed by an MCP toolkit.
type MCPBinding struct {
	ServerURL   string            `json:"server_url,omitempty" yaml:"server_url,omitempty"`
	Source      string            `json:"source,omitempty" yaml:"source,omitempty"`
	Command     string            `json:"command,omitempty" yaml:"command,omitempty"`
	Args        []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Connections map[string]string `json:"connections,omitempty" yaml:"connections,omitempty"`
}

// Server returns where the binding's MCP server runs.
func (m *MCPBinding) Server() MCPServer {
	return MCPServer{URL: m.ServerURL, Command: m.Command, Args: m.Args}
}

// MCPServer identifies an MCP server, either by SSE endpoint URL or by a
// command started over stdio.
type MCPServer struct {
	URL     string
	Command string
	Args    []string
	Env     []string
}

func (s MCPServer) String() string {
	if s.URL != "" {
		return s.URL
	}
	return strings.Join(append([]string{s.Command}, s.Args...), " ")
}

func (m *MCPBinding) Validate() error {
	if m.ServerURL == "" && m.Command == "" && m.Source == "" {
		return newValidationError("binding.mcp", "one of server_url, command or source is required")
	}
	return nil
}

// SkillBinding refers to an operation of a skill in a skillset.
type SkillBinding struct {
	SkillsetID   string `json:"skillset_id" yaml:"skillset_id"`
	SkillID      string `json:"skill_id" yaml:"skill_id"`
	OperatorPath string `json:"skill_operation_path" yaml:"skill_operation_path"`
	HTTPMethod   string `json:"http_method" yaml:"http_method"`
}

func (s *SkillBinding) Validate() error {
	var missing []string
	if s.SkillsetID == "" {
		missing = append(missing, "skillset_id")
	}
	if s.SkillID == "" {
		missing = append(missing, "skill_id")
	}
	if s.OperatorPath == "" {
		missing = append(missing, "skill_operation_path")
	}
	if len(missing) > 0 {
		return newValidationError("binding.skill", "missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// ClientSideBinding marks a tool executed by the chat client itself.
type ClientSideBinding struct{}

func (b Binding) String() string {
	if k := b.Kind(); k != "" {
		return string(k)
	}
	return fmt.Sprintf("invalid(%v)", b.set())
}
