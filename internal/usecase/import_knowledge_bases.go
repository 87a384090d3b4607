package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/i2y/orchestrate/internal/domain"
)

// ImportKnowledgeBasesUseCase creates or updates a knowledge base by name.
type ImportKnowledgeBasesUseCase struct {
	reader SpecReader
	stores Stores
	logger *slog.Logger
}

func NewImportKnowledgeBasesUseCase(reader SpecReader, stores Stores, logger *slog.Logger) *ImportKnowledgeBasesUseCase {
	return &ImportKnowledgeBasesUseCase{
		reader: reader,
		stores: stores,
		logger: logger.With("usecase", "ImportKnowledgeBases"),
	}
}

func (uc *ImportKnowledgeBasesUseCase) Import(ctx context.Context, file string) (*PublishResult, error) {
	data, format, err := uc.reader.Read(file)
	if err != nil {
		return nil, err
	}
	kb, err := domain.ParseKnowledgeBase(data, format)
	if err != nil {
		uc.logger.Error("Invalid knowledge base spec", slog.String("file", file), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return NewDispatcher(uc.stores, uc.logger).PublishOrUpdate(ctx, Publishable{
		Name:    kb.Name,
		Kind:    StoreKnowledgeBases,
		Payload: kb,
	})
}
