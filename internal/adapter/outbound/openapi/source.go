package openapi

import (
	"context"
	"fmt"

	"github.com/i2y/orchestrate/internal/domain"
)

// Source fetches a document and turns every operation in it into a tool.
type Source struct {
	fetcher   *Fetcher
	generator *Generator
}

func NewSource(fetcher *Fetcher, generator *Generator) *Source {
	return &Source{fetcher: fetcher, generator: generator}
}

// SynthesizeAll loads source and synthesizes all of its operations with the
// given permission.
func (s *Source) SynthesizeAll(ctx context.Context, source string, permission domain.Permission) ([]*domain.ToolSpec, error) {
	doc, err := s.fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI document %s: %w", source, err)
	}
	return s.generator.SynthesizeAll(doc, SynthesisOptions{Permission: permission})
}
