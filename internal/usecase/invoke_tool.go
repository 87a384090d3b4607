package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/i2y/orchestrate/internal/domain"
)

// InvokeOptions override where and as whom a tool runs.
type InvokeOptions struct {
	// Server replaces the server named by the binding.
	Server string
	// AppID names the connection whose credentials are read from the
	// environment.
	AppID string
}

// InvokeToolUseCase runs a tool spec from this process.
type InvokeToolUseCase struct {
	reader  SpecReader
	invoker ToolInvoker
	exec    ExecutionContext
	logger  *slog.Logger
}

// NewInvokeToolUseCase creates a new InvokeToolUseCase. exec supplies the
// environment credentials are read from.
func NewInvokeToolUseCase(reader SpecReader, invoker ToolInvoker, exec ExecutionContext, logger *slog.Logger) *InvokeToolUseCase {
	return &InvokeToolUseCase{
		reader:  reader,
		invoker: invoker,
		exec:    exec,
		logger:  logger.With("usecase", "InvokeTool"),
	}
}

// Load reads and validates a tool spec file.
func (uc *InvokeToolUseCase) Load(file string) (*domain.ToolSpec, error) {
	data, format, err := uc.reader.Read(file)
	if err != nil {
		return nil, err
	}
	spec, err := domain.ParseToolSpec(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return spec, nil
}

// Execute loads the spec in file and invokes it.
func (uc *InvokeToolUseCase) Execute(ctx context.Context, file string, opts InvokeOptions, args map[string]any) (any, error) {
	spec, err := uc.Load(file)
	if err != nil {
		return nil, err
	}
	return uc.Invoke(ctx, spec, opts, args)
}

// Invoke checks args against the input schema, resolves credentials and
// calls the tool.
func (uc *InvokeToolUseCase) Invoke(ctx context.Context, spec *domain.ToolSpec, opts InvokeOptions, args map[string]any) (any, error) {
	ctx, span := tracer.Start(ctx, "InvokeTool", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("tool.name", spec.Name), attribute.String("tool.binding", spec.Binding.String()))

	log := uc.logger.With(slog.String("tool_name", spec.Name))
	log.Info("Executing tool invocation")

	// --- 1. Validate arguments --- //
	if args == nil {
		args = map[string]any{}
	}
	if err := ValidateArguments(spec.InputSchema, args); err != nil {
		log.Warn("Invalid input parameters", slog.Any("error", err))
		return nil, err
	}

	// --- 2. Resolve credentials --- //
	var creds *domain.Credentials
	if opts.AppID != "" {
		c, err := uc.credentials(spec, opts.AppID)
		if err != nil {
			log.Error("Failed to resolve credentials", slog.String("app_id", opts.AppID), slog.Any("error", err))
			return nil, err
		}
		creds = c
	}

	// --- 3. Invoke --- //
	result, err := uc.invoker.Invoke(ctx, spec, opts.Server, creds, args)
	if err != nil {
		log.Error("Failed to invoke tool", slog.Any("error", err))
		return nil, fmt.Errorf("failed to invoke tool %s: %w", spec.Name, err)
	}
	log.Info("Tool invocation successful")
	log.Debug("Invocation result", slog.Any("result", result))
	return result, nil
}

func (uc *InvokeToolUseCase) credentials(spec *domain.ToolSpec, appID string) (*domain.Credentials, error) {
	want, ok := connectionTypeFor(spec)
	if !ok {
		declared := declaredConnectionType(appID, uc.exec.Environ)
		t, err := domain.ParseConnectionType(declared)
		if err != nil {
			return nil, &domain.ValidationError{Field: "connection", Message: fmt.Sprintf("no credentials found for connection '%s'", appID)}
		}
		want = t
	}
	values, err := domain.CredentialsFromEnv(appID, want, uc.exec.Environ)
	if err != nil {
		return nil, err
	}
	return &domain.Credentials{Type: want, Values: values}, nil
}

// connectionTypeFor derives the expected connection type from the first
// security scheme of an openapi binding.
func connectionTypeFor(spec *domain.ToolSpec) (domain.ConnectionType, bool) {
	b := spec.Binding.OpenAPI
	if b == nil || len(b.Security) == 0 {
		return "", false
	}
	s := b.Security[0]
	switch strings.ToLower(s.Type) {
	case "http":
		switch strings.ToLower(s.Scheme) {
		case "basic":
			return domain.ConnectionBasicAuth, true
		case "bearer":
			return domain.ConnectionBearerToken, true
		}
	case "apikey":
		return domain.ConnectionAPIKeyAuth, true
	}
	return "", false
}

func declaredConnectionType(appID string, environ []string) string {
	key := "WXO_SECURITY_SCHEMA_" + domain.SanitizeAppID(appID) + "="
	for _, kv := range environ {
		if strings.HasPrefix(kv, key) {
			return strings.TrimPrefix(kv, key)
		}
	}
	return ""
}

// ValidateArguments checks args against schema and reports every violation
// in one ValidationError.
func ValidateArguments(schema *domain.Schema, args map[string]any) error {
	if schema == nil {
		return nil
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to encode input schema: %w", err)
	}
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(raw), gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("failed to validate arguments: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return &domain.ValidationError{Field: "arguments", Message: strings.Join(msgs, "; ")}
}
