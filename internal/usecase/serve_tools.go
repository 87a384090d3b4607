package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/i2y/orchestrate/internal/domain"
)

// ServeToolsUseCase keeps a catalog of local tool specs and runs them on
// request, so they can be exposed over MCP before they are published.
type ServeToolsUseCase struct {
	mu     sync.RWMutex
	tools  map[string]*domain.ToolSpec
	invoke *InvokeToolUseCase
	opts   InvokeOptions
	logger *slog.Logger
}

// NewServeToolsUseCase creates a new ServeToolsUseCase. opts apply to every call.
func NewServeToolsUseCase(invoke *InvokeToolUseCase, opts InvokeOptions, logger *slog.Logger) *ServeToolsUseCase {
	return &ServeToolsUseCase{
		tools:  make(map[string]*domain.ToolSpec),
		invoke: invoke,
		opts:   opts,
		logger: logger.With("usecase", "ServeTools"),
	}
}

// Load adds the specs in files to the catalog. Two specs with the same
// name are rejected.
func (uc *ServeToolsUseCase) Load(files []string) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	for _, file := range files {
		spec, err := uc.invoke.Load(file)
		if err != nil {
			uc.logger.Error("Failed to load tool spec", slog.String("file", file), slog.Any("error", err))
			return err
		}
		if _, dup := uc.tools[spec.Name]; dup {
			return &domain.ValidationError{Field: "name", Message: fmt.Sprintf("tool '%s' is defined more than once", spec.Name)}
		}
		uc.tools[spec.Name] = spec
		uc.logger.Info("Loaded tool", slog.String("name", spec.Name), slog.String("binding", spec.Binding.String()))
	}
	return nil
}

// Execute lists the catalog sorted by name.
func (uc *ServeToolsUseCase) Execute(ctx context.Context) ([]*domain.ToolSpec, error) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()

	tools := make([]*domain.ToolSpec, 0, len(uc.tools))
	for _, t := range uc.tools {
		tools = append(tools, t)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	uc.logger.Info("Successfully listed tools", slog.Int("count", len(tools)))
	return tools, nil
}

// Call runs the catalog tool called name.
func (uc *ServeToolsUseCase) Call(ctx context.Context, name string, args map[string]any) (any, error) {
	uc.mu.RLock()
	spec, ok := uc.tools[name]
	uc.mu.RUnlock()
	if !ok {
		uc.logger.Warn("Tool definition not found", slog.String("tool_name", name))
		return nil, fmt.Errorf("tool '%s': %w", name, ErrToolNotFound)
	}
	return uc.invoke.Invoke(ctx, spec, uc.opts, args)
}
