package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParameterLocation tells the HTTP binding where an input property is placed
// when the tool is invoked.
type ParameterLocation string

const (
	LocationQuery  ParameterLocation = "query"
	LocationHeader ParameterLocation = "header"
	LocationPath   ParameterLocation = "path"
	LocationBody   ParameterLocation = "body"
)

// JSON Schema primitive type names.
const (
	TypeObject  = "object"
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeNull    = "null"
)

// SchemaType is the value of a schema's "type" keyword.
// Documents may carry a list of types; the first element is authoritative
// and the rest are dropped while decoding.
type SchemaType string

func (t *SchemaType) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("invalid type list: %w", err)
		}
		*t = ""
		if len(list) > 0 {
			*t = SchemaType(list[0])
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid type: %w", err)
	}
	*t = SchemaType(s)
	return nil
}

func (t *SchemaType) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		*t = ""
		if len(node.Content) > 0 {
			*t = SchemaType(node.Content[0].Value)
		}
		return nil
	}
	*t = SchemaType(node.Value)
	return nil
}

// Schema is a JSON-Schema-like node shared by Python reflection, OpenAPI
// synthesis and the backend wire format.
type Schema struct {
	Type                 SchemaType        `json:"type,omitempty" yaml:"type,omitempty"`
	Title                string            `json:"title,omitempty" yaml:"title,omitempty"`
	Description          string            `json:"description,omitempty" yaml:"description,omitempty"`
	Properties           *Properties       `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required             []string          `json:"required,omitempty" yaml:"required,omitempty"`
	Items                *Schema           `json:"items,omitempty" yaml:"items,omitempty"`
	UniqueItems          *bool             `json:"uniqueItems,omitempty" yaml:"uniqueItems,omitempty"`
	AdditionalProperties *Schema           `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`
	Default              any               `json:"default,omitempty" yaml:"default,omitempty"`
	Enum                 []any             `json:"enum,omitempty" yaml:"enum,omitempty"`
	Minimum              *float64          `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum              *float64          `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	MinLength            *int              `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength            *int              `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Format               string            `json:"format,omitempty" yaml:"format,omitempty"`
	AnyOf                []*Schema         `json:"anyOf,omitempty" yaml:"anyOf,omitempty"`
	In                   ParameterLocation `json:"in,omitempty" yaml:"in,omitempty"`
}

// ObjectSchema returns an empty object schema with no properties and nothing required.
func ObjectSchema() *Schema {
	return &Schema{Type: TypeObject, Properties: NewProperties(), Required: []string{}}
}

// IsNullType reports whether the node is exactly the null type.
func (s *Schema) IsNullType() bool {
	return s != nil && s.Type == TypeNull && len(s.AnyOf) == 0
}

// IsObject reports whether the node describes an object with properties.
func (s *Schema) IsObject() bool {
	return s != nil && (s.Type == TypeObject || (s.Type == "" && s.Properties != nil))
}

// IsRequired reports whether name is listed in Required.
func (s *Schema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// AddRequired appends name to Required unless it is already present.
func (s *Schema) AddRequired(name string) {
	if !s.IsRequired(name) {
		s.Required = append(s.Required, name)
	}
}

// RemoveRequired drops name from Required.
func (s *Schema) RemoveRequired(name string) {
	out := s.Required[:0]
	for _, r := range s.Required {
		if r != name {
			out = append(out, r)
		}
	}
	s.Required = out
}

// Clone returns a deep copy of the node.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	c := *s
	c.Properties = s.Properties.Clone()
	c.Items = s.Items.Clone()
	c.AdditionalProperties = s.AdditionalProperties.Clone()
	if s.Required != nil {
		c.Required = append([]string{}, s.Required...)
	}
	if s.Enum != nil {
		c.Enum = append([]any{}, s.Enum...)
	}
	if s.AnyOf != nil {
		c.AnyOf = make([]*Schema, len(s.AnyOf))
		for i, b := range s.AnyOf {
			c.AnyOf[i] = b.Clone()
		}
	}
	if s.UniqueItems != nil {
		v := *s.UniqueItems
		c.UniqueItems = &v
	}
	return &c
}

// ToMap renders the node as a generic JSON value, for handing to JSON Schema
// validators that do not know this type.
func (s *Schema) ToMap() (map[string]any, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
	}
	return m, nil
}
