package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/i2y/orchestrate/internal/domain"
)

// ImportPythonParams selects a python module to import.
type ImportPythonParams struct {
	File             string
	RequirementsFile string
	// AppIDs are "runtime=local" connection mappings.
	AppIDs []string
}

// ImportOpenAPIParams selects an OpenAPI document to import.
type ImportOpenAPIParams struct {
	Source     string
	AppID      string
	Permission domain.Permission
}

// ImportSkillParams describes a skill-backed tool.
type ImportSkillParams struct {
	Name          string
	Description   string
	SkillsetID    string
	SkillID       string
	OperationPath string
	HTTPMethod    string
	Permission    domain.Permission
}

// ImportToolsUseCase turns tool sources into tool specs and publishes them.
type ImportToolsUseCase struct {
	reflector   PythonReflector
	synthesizer OpenAPISynthesizer
	packager    ArtifactPackager
	resolver    *Resolver
	stores      Stores
	logger      *slog.Logger
}

// NewImportToolsUseCase creates a new ImportToolsUseCase.
func NewImportToolsUseCase(
	reflector PythonReflector,
	synthesizer OpenAPISynthesizer,
	packager ArtifactPackager,
	resolver *Resolver,
	stores Stores,
	logger *slog.Logger,
) *ImportToolsUseCase {
	return &ImportToolsUseCase{
		reflector:   reflector,
		synthesizer: synthesizer,
		packager:    packager,
		resolver:    resolver,
		stores:      stores,
		logger:      logger.With("usecase", "ImportTools"),
	}
}

// ImportPython reflects the decorated tools of a module, binds their
// connections, publishes them and uploads the module as their artifact.
func (uc *ImportToolsUseCase) ImportPython(ctx context.Context, p ImportPythonParams) ([]PublishResult, error) {
	ctx, span := tracer.Start(ctx, "ImportPython")
	defer span.End()
	span.SetAttributes(attribute.String("file", p.File))

	log := uc.logger.With(slog.String("file", p.File))
	log.Info("Importing python tools")

	// --- 1. Reflect --- //
	tools, err := uc.reflector.ReflectFile(ctx, p.File)
	if err != nil {
		log.Error("Failed to reflect python module", slog.Any("error", err))
		return nil, fmt.Errorf("failed to read tools from %s: %w", p.File, err)
	}
	if len(tools) == 0 {
		return nil, &domain.ValidationError{Field: "file", Message: fmt.Sprintf("no functions decorated with @tool found in %s", p.File)}
	}

	// --- 2. Bind connections --- //
	entities := make([]Publishable, 0, len(tools))
	for _, tool := range tools {
		conns, err := uc.resolver.ResolveConnections(ctx, p.AppIDs, tool.ExpectedCredentials)
		if err != nil {
			log.Error("Connection validation failed", slog.String("tool", tool.Spec.Name), slog.Any("error", err))
			return nil, fmt.Errorf("tool %s: %w", tool.Spec.Name, err)
		}
		if len(conns) > 0 {
			tool.Spec.Binding.Python.Connections = conns
		}
		entities = append(entities, Publishable{Name: tool.Spec.Name, Kind: StoreTools, Payload: tool.Spec})
	}

	// --- 3. Package --- //
	filename, artifact, err := uc.packager.PythonTool(p.File, p.RequirementsFile)
	if err != nil {
		log.Error("Failed to package python module", slog.Any("error", err))
		return nil, fmt.Errorf("failed to package %s: %w", p.File, err)
	}

	// --- 4. Publish and upload --- //
	results, err := NewDispatcher(uc.stores, uc.logger).Batch(ctx, entities)
	if err != nil {
		return results, err
	}
	for _, r := range results {
		if err := uc.stores.Tools.UploadArtifact(ctx, r.ID, filename, artifact); err != nil {
			log.Error("Failed to upload tool artifact", slog.String("tool", r.Name), slog.Any("error", err))
			return results, fmt.Errorf("failed to upload artifact for tool %s: %w", r.Name, err)
		}
	}

	log.Info("Imported python tools", slog.Int("count", len(results)))
	return results, nil
}

// ImportOpenAPI synthesizes a tool for every operation of a document. An
// app id binds all of them to that connection.
func (uc *ImportToolsUseCase) ImportOpenAPI(ctx context.Context, p ImportOpenAPIParams) ([]PublishResult, error) {
	ctx, span := tracer.Start(ctx, "ImportOpenAPI")
	defer span.End()
	span.SetAttributes(attribute.String("source", p.Source))

	log := uc.logger.With(slog.String("source", p.Source))
	log.Info("Importing OpenAPI tools")

	var connectionID string
	if p.AppID != "" {
		id, err := uc.resolver.ResolveConnectionID(ctx, p.AppID)
		if err != nil {
			return nil, err
		}
		connectionID = id
	}

	specs, err := uc.synthesizer.SynthesizeAll(ctx, p.Source, p.Permission)
	if err != nil {
		log.Error("Failed to synthesize tools", slog.Any("error", err))
		return nil, err
	}
	if len(specs) == 0 {
		return nil, &domain.ValidationError{Field: "file", Message: fmt.Sprintf("no operations found in %s", p.Source)}
	}

	entities := make([]Publishable, 0, len(specs))
	for _, spec := range specs {
		if connectionID != "" {
			spec.Binding.OpenAPI.ConnectionID = connectionID
		}
		entities = append(entities, Publishable{Name: spec.Name, Kind: StoreTools, Payload: spec})
	}

	results, err := NewDispatcher(uc.stores, uc.logger).Batch(ctx, entities)
	if err != nil {
		return results, err
	}
	log.Info("Imported OpenAPI tools", slog.Int("count", len(results)))
	return results, nil
}

// ImportSkill publishes a tool bound to a skill operation. Its input schema
// is an empty object; the skill defines its own contract.
func (uc *ImportToolsUseCase) ImportSkill(ctx context.Context, p ImportSkillParams) (*PublishResult, error) {
	name := p.Name
	if name == "" {
		name = p.SkillID
	}
	binding := domain.Binding{Skill: &domain.SkillBinding{
		SkillsetID:   p.SkillsetID,
		SkillID:      p.SkillID,
		OperatorPath: p.OperationPath,
		HTTPMethod:   p.HTTPMethod,
	}}
	spec, err := domain.NewToolSpec(name, p.Description, p.Permission, domain.ObjectSchema(), nil, binding)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("Importing skill tool", slog.String("name", name), slog.String("skill_id", p.SkillID))
	return NewDispatcher(uc.stores, uc.logger).PublishOrUpdate(ctx, Publishable{Name: name, Kind: StoreTools, Payload: spec})
}
