package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Properties is an insertion-ordered mapping of property name to schema.
// Order is kept through JSON and YAML round trips so generated specs are stable.
type Properties struct {
	keys   []string
	values map[string]*Schema
}

func NewProperties() *Properties {
	return &Properties{values: make(map[string]*Schema)}
}

// Set adds or replaces a property. Replacing keeps the original position.
func (p *Properties) Set(name string, s *Schema) {
	if p.values == nil {
		p.values = make(map[string]*Schema)
	}
	if _, ok := p.values[name]; !ok {
		p.keys = append(p.keys, name)
	}
	p.values[name] = s
}

func (p *Properties) Get(name string) (*Schema, bool) {
	if p == nil {
		return nil, false
	}
	s, ok := p.values[name]
	return s, ok
}

func (p *Properties) Delete(name string) {
	if p == nil {
		return
	}
	if _, ok := p.values[name]; !ok {
		return
	}
	delete(p.values, name)
	for i, k := range p.keys {
		if k == name {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
}

// Keys returns property names in insertion order.
func (p *Properties) Keys() []string {
	if p == nil {
		return nil
	}
	return append([]string{}, p.keys...)
}

func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

func (p *Properties) Clone() *Properties {
	if p == nil {
		return nil
	}
	c := NewProperties()
	for _, k := range p.keys {
		c.Set(k, p.values[k].Clone())
	}
	return c
}

func (p *Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(p.values[k])
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p *Properties) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("properties must be an object")
	}
	p.keys = nil
	p.values = make(map[string]*Schema)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected property key %v", tok)
		}
		var s Schema
		if err := dec.Decode(&s); err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
		p.Set(name, &s)
	}
	_, err = dec.Token()
	return err
}

func (p *Properties) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range p.keys {
		var val yaml.Node
		if err := val.Encode(p.values[k]); err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&val,
		)
	}
	return node, nil
}

func (p *Properties) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("properties must be a mapping")
	}
	p.keys = nil
	p.values = make(map[string]*Schema)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		var s Schema
		if err := node.Content[i+1].Decode(&s); err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
		p.Set(name, &s)
	}
	return nil
}
