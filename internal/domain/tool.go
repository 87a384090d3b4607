package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Permission is the access level a user needs to invoke a tool.
type Permission string

const (
	PermissionReadOnly  Permission = "read_only"
	PermissionWriteOnly Permission = "write_only"
	PermissionReadWrite Permission = "read_write"
	PermissionAdmin     Permission = "admin"
)

// ParsePermission accepts any casing, so the upper-case names used by older
// spec files ("READ_ONLY") are still understood.
func ParsePermission(s string) (Permission, error) {
	p := Permission(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PermissionReadOnly, PermissionWriteOnly, PermissionReadWrite, PermissionAdmin:
		return p, nil
	case "":
		return PermissionReadOnly, nil
	}
	return "", newValidationError("permission", "invalid permission %q, expected one of read_only, write_only, read_write, admin", s)
}

func (p *Permission) UnmarshalText(text []byte) error {
	parsed, err := ParsePermission(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ToolSpec is the canonical description of a tool: its I/O contract and
// exactly one execution binding.
type ToolSpec struct {
	// Name is the unique key of the tool on the backend.
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Permission  Permission `json:"permission" yaml:"permission"`

	// InputSchema is always an object whose properties are the tool arguments.
	InputSchema *Schema `json:"input_schema" yaml:"input_schema"`

	// OutputSchema may be any type. An empty node means the result is opaque.
	OutputSchema *Schema `json:"output_schema" yaml:"output_schema"`

	Binding   Binding `json:"binding" yaml:"binding"`
	ToolkitID string  `json:"toolkit_id,omitempty" yaml:"toolkit_id,omitempty"`
}

// NewToolSpec builds and validates a spec. An empty permission defaults to read_only.
func NewToolSpec(name, description string, permission Permission, input, output *Schema, binding Binding) (*ToolSpec, error) {
	if permission == "" {
		permission = PermissionReadOnly
	}
	if output == nil {
		output = &Schema{}
	}
	spec := &ToolSpec{
		Name:         name,
		Description:  description,
		Permission:   permission,
		InputSchema:  input,
		OutputSchema: output,
		Binding:      binding,
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// Validate checks the invariants every tool must satisfy before it is published.
func (t *ToolSpec) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return newValidationError("name", "tool name must not be empty")
	}
	if _, err := ParsePermission(string(t.Permission)); err != nil {
		return err
	}
	if t.InputSchema == nil || t.InputSchema.Type != TypeObject {
		return newValidationError("input_schema", "tool %q input schema must be of type object", t.Name)
	}
	for _, r := range t.InputSchema.Required {
		if _, ok := t.InputSchema.Properties.Get(r); !ok {
			return newValidationError("input_schema.required", "tool %q requires unknown property %q", t.Name, r)
		}
	}
	if err := t.Binding.Validate(); err != nil {
		return fmt.Errorf("tool %q: %w", t.Name, err)
	}
	return nil
}

// toolSpecFields and schemaFields carry the fields of their types without
// the marshal methods, so those methods can encode them without recursing.
type (
	toolSpecFields ToolSpec
	schemaFields   Schema
)

// inputSchema is the wire form of a tool's input schema. The backend expects
// required on it even when no argument is required.
type inputSchema Schema

func (s *inputSchema) MarshalJSON() ([]byte, error) {
	required := s.Required
	if required == nil {
		required = []string{}
	}
	return json.Marshal(struct {
		*schemaFields
		Required []string `json:"required"`
	}{(*schemaFields)(s), required})
}

// MarshalJSON writes the spec with an explicit required list on its input schema.
func (t ToolSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		*toolSpecFields
		InputSchema *inputSchema `json:"input_schema"`
	}{(*toolSpecFields)(&t), (*inputSchema)(t.InputSchema)})
}

// MarshalYAML writes the spec with an explicit required list on its input schema.
func (t ToolSpec) MarshalYAML() (any, error) {
	var node yaml.Node
	if err := node.Encode((*toolSpecFields)(&t)); err != nil {
		return nil, err
	}
	in := mappingValue(&node, "input_schema")
	if in != nil && in.Kind == yaml.MappingNode && mappingValue(in, "required") == nil {
		in.Content = append(in.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "required"},
			&yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle},
		)
	}
	return &node, nil
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// Marshal renders the spec in the given format.
func (t *ToolSpec) Marshal(format SpecFormat) ([]byte, error) {
	return MarshalSpec(t, format)
}

// ParseToolSpec decodes and validates a spec document.
func ParseToolSpec(data []byte, format SpecFormat) (*ToolSpec, error) {
	var spec ToolSpec
	if err := decode(data, format, &spec); err != nil {
		return nil, newValidationError("", "failed to parse tool spec: %v", err)
	}
	if spec.Permission == "" {
		spec.Permission = PermissionReadOnly
	}
	if spec.OutputSchema == nil {
		spec.OutputSchema = &Schema{}
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// PythonTool is a tool reflected from Python source, together with the
// connections its decorator says it needs.
type PythonTool struct {
	Spec                *ToolSpec
	ExpectedCredentials []ExpectedCredential
	// FunctionName is the Python name of the decorated function.
	FunctionName string
	Line         int
}
