package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/i2y/orchestrate/internal/domain"
)

// ImportAgentsUseCase publishes agents read from spec files or built from flags.
type ImportAgentsUseCase struct {
	reader   SpecReader
	writer   SpecWriter
	resolver *Resolver
	stores   Stores
	logger   *slog.Logger
}

// NewImportAgentsUseCase creates a new ImportAgentsUseCase.
func NewImportAgentsUseCase(reader SpecReader, writer SpecWriter, resolver *Resolver, stores Stores, logger *slog.Logger) *ImportAgentsUseCase {
	return &ImportAgentsUseCase{
		reader:   reader,
		writer:   writer,
		resolver: resolver,
		stores:   stores,
		logger:   logger.With("usecase", "ImportAgents"),
	}
}

// Import parses an agent spec file and publishes the agent.
func (uc *ImportAgentsUseCase) Import(ctx context.Context, file string) (*PublishResult, error) {
	data, format, err := uc.reader.Read(file)
	if err != nil {
		return nil, err
	}
	agent, err := domain.ParseAgent(data, format)
	if err != nil {
		uc.logger.Error("Invalid agent spec", slog.String("file", file), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return uc.publish(ctx, agent)
}

// CreateAgent publishes an agent built from flags. When output is set the
// spec is also written there, with references still given by name.
func (uc *ImportAgentsUseCase) CreateAgent(ctx context.Context, agent domain.Agent, output string) (*PublishResult, error) {
	if err := agent.Validate(); err != nil {
		return nil, err
	}
	if output != "" {
		if err := uc.writer.Write(output, agent); err != nil {
			return nil, err
		}
	}
	return uc.publish(ctx, agent)
}

func (uc *ImportAgentsUseCase) publish(ctx context.Context, agent domain.Agent) (*PublishResult, error) {
	ctx, span := tracer.Start(ctx, "PublishAgent")
	defer span.End()
	span.SetAttributes(attribute.String("agent.name", agent.AgentName()))

	if err := uc.resolver.ResolveAgent(ctx, agent); err != nil {
		return nil, err
	}
	return NewDispatcher(uc.stores, uc.logger).PublishOrUpdate(ctx, Publishable{
		Name:    agent.AgentName(),
		Kind:    StoreKind(agent.AgentKind()),
		Payload: agent,
	})
}
