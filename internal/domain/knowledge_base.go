package domain

import "strings"

const KnowledgeBaseKind = "knowledge_base"

// ConversationalSearchTool points a knowledge base at an existing search index
// instead of uploaded documents.
type ConversationalSearchTool struct {
	IndexConfig []map[string]any `json:"index_config,omitempty" yaml:"index_config,omitempty"`
}

// KnowledgeBaseSpec is the declarative form of a knowledge base.
type KnowledgeBaseSpec struct {
	SpecVersion              string                    `json:"spec_version" yaml:"spec_version"`
	Kind                     string                    `json:"kind" yaml:"kind"`
	ID                       string                    `json:"id,omitempty" yaml:"id,omitempty"`
	Name                     string                    `json:"name" yaml:"name"`
	Description              string                    `json:"description,omitempty" yaml:"description,omitempty"`
	PrioritizeBuiltInIndex   *bool                     `json:"prioritize_built_in_index,omitempty" yaml:"prioritize_built_in_index,omitempty"`
	Documents                []string                  `json:"documents,omitempty" yaml:"documents,omitempty"`
	ConversationalSearchTool *ConversationalSearchTool `json:"conversational_search_tool,omitempty" yaml:"conversational_search_tool,omitempty"`
}

func (k *KnowledgeBaseSpec) hasIndex() bool {
	return k.ConversationalSearchTool != nil && len(k.ConversationalSearchTool.IndexConfig) > 0
}

// Validate checks the discriminator fields and the documents/index exclusivity.
func (k *KnowledgeBaseSpec) Validate() error {
	if k.SpecVersion == "" {
		return newValidationError("spec_version", "field 'spec_version' not provided, please ensure provided spec conforms to a valid spec format")
	}
	if k.Kind == "" {
		return newValidationError("kind", "field 'kind' not provided, should be '%s'", KnowledgeBaseKind)
	}
	if k.Kind != KnowledgeBaseKind {
		return newValidationError("kind", "field 'kind' should be '%s', but is set to '%s'", KnowledgeBaseKind, k.Kind)
	}
	if strings.TrimSpace(k.Name) == "" {
		return newValidationError("name", "knowledge base name must not be empty")
	}
	if (len(k.Documents) > 0) == k.hasIndex() {
		return newValidationError("documents", `must provide either "documents" or "conversational_search_tool.index_config", but not both`)
	}
	return nil
}

// ParseKnowledgeBase decodes and validates a knowledge base spec.
func ParseKnowledgeBase(data []byte, format SpecFormat) (*KnowledgeBaseSpec, error) {
	var kb KnowledgeBaseSpec
	if err := decode(data, format, &kb); err != nil {
		return nil, newValidationError("", "failed to parse knowledge base spec: %v", err)
	}
	if err := kb.Validate(); err != nil {
		return nil, err
	}
	return &kb, nil
}
