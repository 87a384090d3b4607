package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/i2y/orchestrate/internal/domain"
)

// ImportToolkitParams describes an MCP toolkit to register.
type ImportToolkitParams struct {
	Kind        domain.ToolkitKind
	Name        string
	Description string
	// PackageRoot is a directory or zip uploaded as the toolkit's source.
	PackageRoot string
	// Command starts the server over stdio, as a JSON list or a plain line.
	Command string
	URL     string
	// Tools limits the toolkit; empty means every tool the server lists.
	Tools  []string
	AppIDs []string
	Env    []string
}

// ImportToolkitUseCase registers an MCP server as a toolkit.
type ImportToolkitUseCase struct {
	lister   MCPToolLister
	packager ArtifactPackager
	resolver *Resolver
	stores   Stores
	logger   *slog.Logger
}

// NewImportToolkitUseCase creates a new ImportToolkitUseCase.
func NewImportToolkitUseCase(lister MCPToolLister, packager ArtifactPackager, resolver *Resolver, stores Stores, logger *slog.Logger) *ImportToolkitUseCase {
	return &ImportToolkitUseCase{
		lister:   lister,
		packager: packager,
		resolver: resolver,
		stores:   stores,
		logger:   logger.With("usecase", "ImportToolkit"),
	}
}

// Import creates the toolkit. Unlike other entities a toolkit is never
// updated in place: an existing toolkit with the same name is an error.
func (uc *ImportToolkitUseCase) Import(ctx context.Context, p ImportToolkitParams) (*PublishResult, error) {
	ctx, span := tracer.Start(ctx, "ImportToolkit")
	defer span.End()
	span.SetAttributes(attribute.String("toolkit.name", p.Name))

	log := uc.logger.With(slog.String("name", p.Name))

	if p.Kind != domain.ToolkitKindMCP {
		return nil, &domain.ParameterError{Message: fmt.Sprintf("unsupported toolkit kind: %s", p.Kind)}
	}

	// --- 1. Reject duplicates --- //
	existing, err := uc.stores.Toolkits.GetDraftsByNames(ctx, []string{p.Name})
	if err != nil {
		return nil, fmt.Errorf("failed to look up toolkit %s: %w", p.Name, err)
	}
	if len(existing) > 0 {
		log.Error("Toolkit already exists")
		return nil, &domain.ValidationError{Field: "name", Message: fmt.Sprintf("Existing toolkit found with name '%s'. Failed to create toolkit.", p.Name)}
	}

	spec := &domain.ToolkitSpec{
		Name:        p.Name,
		Description: p.Description,
		MCP:         domain.MCPToolkit{Source: "files", URL: p.URL, Args: []string{}, Tools: p.Tools, Connections: map[string]string{}},
	}
	if p.URL != "" {
		spec.MCP.Source = "url"
	}
	if p.Command != "" {
		cmd, args, err := domain.ParseCommand(p.Command)
		if err != nil {
			return nil, err
		}
		spec.MCP.Command, spec.MCP.Args = cmd, args
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	// --- 2. Remap connections --- //
	for _, raw := range p.AppIDs {
		m, err := domain.ParseAppIDMapping(raw)
		if err != nil {
			return nil, err
		}
		conn, err := uc.resolver.lookupConnection(ctx, m.LocalID)
		if err != nil {
			return nil, err
		}
		if conn.Type() != domain.ConnectionKeyValue {
			return nil, &domain.ValidationError{Field: "app_id", Message: fmt.Sprintf(
				"Only key_value credentials are currently supported, connection '%s' has type '%s'", m.LocalID, conn.Type())}
		}
		spec.MCP.Connections[domain.SanitizeAppID(m.RuntimeID)] = conn.ConnectionID
	}

	// --- 3. Discover tools --- //
	if len(spec.MCP.Tools) == 0 {
		server := domain.MCPServer{URL: p.URL, Command: spec.MCP.Command, Args: spec.MCP.Args, Env: p.Env}
		names, err := uc.lister.ListToolNames(ctx, server)
		if err != nil {
			log.Error("Failed to list tools of MCP server", slog.String("server", server.String()), slog.Any("error", err))
			return nil, fmt.Errorf("failed to list tools of %s: %w", server, err)
		}
		spec.MCP.Tools = names
		log.Info("Discovered MCP tools", slog.Int("count", len(names)))
	}

	// --- 4. Create and upload --- //
	id, err := uc.stores.Toolkits.Create(ctx, spec)
	if err != nil {
		log.Error("Failed to create toolkit", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create toolkit '%s': %w", p.Name, err)
	}
	if p.PackageRoot != "" {
		filename, data, err := uc.packager.Directory(p.PackageRoot)
		if err != nil {
			return nil, err
		}
		if err := uc.stores.Toolkits.UploadArtifact(ctx, id, filename, data); err != nil {
			log.Error("Failed to upload toolkit package", slog.Any("error", err))
			return nil, fmt.Errorf("failed to upload package for toolkit '%s': %w", p.Name, err)
		}
	}

	log.Info("Created toolkit", slog.String("id", id), slog.Int("tools", len(spec.MCP.Tools)))
	return &PublishResult{Name: p.Name, Kind: StoreToolkits, ID: id, Action: ActionCreated}, nil
}
