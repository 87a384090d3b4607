package openapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/i2y/orchestrate/internal/domain"
)

// DefaultResponseContentType selects the response media type used for the output schema.
const DefaultResponseContentType = "application/json"

// requestBodyProperty holds a request body that is not an object.
const requestBodyProperty = "requestBody"

// SynthesisOptions select an operation and override what the document says about it.
type SynthesisOptions struct {
	Path                string
	Method              string
	SuccessStatusCode   int
	ResponseContentType string
	Name                string
	Description         string
	Permission          domain.Permission
}

// Generator turns OpenAPI operations into tool specs with an openapi binding.
type Generator struct {
	logger *slog.Logger
}

// NewGenerator creates a new OpenAPI tool generator.
func NewGenerator(logger *slog.Logger) *Generator {
	return &Generator{
		logger: logger.With("component", "openapi_generator"),
	}
}

// Synthesize builds the tool for the single operation named by opts.Path and opts.Method.
func (g *Generator) Synthesize(doc *Document, opts SynthesisOptions) (*domain.ToolSpec, error) {
	if doc == nil || doc.Doc == nil {
		return nil, fmt.Errorf("invalid or missing OpenAPI document")
	}

	item := doc.Doc.Paths.Value(opts.Path)
	if item == nil {
		return nil, &domain.SynthesisError{
			Message:   fmt.Sprintf("Path %s not found in paths", opts.Path),
			Available: sortedPaths(doc.Doc),
		}
	}

	method := strings.ToUpper(opts.Method)
	op := item.GetOperation(method)
	if op == nil {
		return nil, &domain.SynthesisError{
			Message:   fmt.Sprintf("Path %s did not have an http_method %s", opts.Path, method),
			Available: sortedMethods(item),
		}
	}

	name := opts.Name
	if name == "" {
		name = op.OperationID
	}
	if name == "" {
		return nil, &domain.SynthesisError{
			Message: fmt.Sprintf("No name provided for tool. %s: %s did not have an operationId, and no name was provided", method, opts.Path),
		}
	}
	opts.Name = name

	return g.build(doc.Doc, opts.Path, method, item, op, opts)
}

// SynthesizeAll builds one tool per operation in the document, ordered by path
// and then by method. Operations without an operationId are named after their
// method and path. Name, Path and Method in opts are ignored.
func (g *Generator) SynthesizeAll(doc *Document, opts SynthesisOptions) ([]*domain.ToolSpec, error) {
	if doc == nil || doc.Doc == nil {
		return nil, fmt.Errorf("invalid or missing OpenAPI document")
	}
	log := g.logger.With(slog.String("source", doc.Source))
	log.Info("Generating tools from OpenAPI document")

	var specs []*domain.ToolSpec
	for _, path := range sortedPaths(doc.Doc) {
		item := doc.Doc.Paths.Value(path)
		for _, method := range sortedMethods(item) {
			op := item.GetOperation(method)

			o := opts
			o.Path = path
			o.Method = method
			o.Name = op.OperationID
			if o.Name == "" {
				o.Name = fallbackToolName(method, path)
			}

			spec, err := g.build(doc.Doc, path, method, item, op, o)
			if err != nil {
				log.Error("Failed to generate tool", slog.String("path", path), slog.String("method", method), slog.Any("error", err))
				return nil, fmt.Errorf("failed to generate tool for %s %s: %w", method, path, err)
			}
			specs = append(specs, spec)
		}
	}

	log.Info("Finished generating tools from OpenAPI document", slog.Int("generated_count", len(specs)))
	return specs, nil
}

func (g *Generator) build(doc *openapi3.T, path, method string, item *openapi3.PathItem, op *openapi3.Operation, opts SynthesisOptions) (*domain.ToolSpec, error) {
	log := g.logger.With(slog.String("path", path), slog.String("method", method), slog.String("tool_name", opts.Name))

	description := opts.Description
	if description == "" {
		description = op.Description
	}
	if description == "" {
		description = op.Summary
	}

	input, err := g.inputSchema(log, item.Parameters, op)
	if err != nil {
		return nil, err
	}

	successCode := opts.SuccessStatusCode
	if successCode == 0 {
		successCode = domain.DefaultSuccessStatusCode
	}
	contentType := opts.ResponseContentType
	if contentType == "" {
		contentType = DefaultResponseContentType
	}
	output := outputSchema(op, successCode, contentType)

	security, err := securitySchemes(doc, path, method, op)
	if err != nil {
		return nil, err
	}

	binding, err := domain.NewOpenAPIBinding(method, path, successCode, security, servers(doc))
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	log.Debug("Generated tool")
	return domain.NewToolSpec(opts.Name, description, opts.Permission, input, output, domain.Binding{OpenAPI: binding})
}

// inputSchema merges path-level and operation-level parameters with the
// request body into one object. Every property records where it is sent.
func (g *Generator) inputSchema(log *slog.Logger, shared openapi3.Parameters, op *openapi3.Operation) (*domain.Schema, error) {
	input := domain.ObjectSchema()

	params := make([]*openapi3.Parameter, 0, len(shared)+len(op.Parameters))
	index := map[string]int{}
	for _, list := range []openapi3.Parameters{shared, op.Parameters} {
		for _, ref := range list {
			if ref == nil || ref.Value == nil {
				continue
			}
			key := ref.Value.In + ":" + ref.Value.Name
			if i, ok := index[key]; ok {
				params[i] = ref.Value
				continue
			}
			index[key] = len(params)
			params = append(params, ref.Value)
		}
	}

	for _, param := range params {
		var loc domain.ParameterLocation
		switch param.In {
		case openapi3.ParameterInQuery:
			loc = domain.LocationQuery
		case openapi3.ParameterInHeader:
			loc = domain.LocationHeader
		case openapi3.ParameterInPath:
			loc = domain.LocationPath
		default:
			log.Warn("Skipping unsupported parameter location", slog.String("param_name", param.Name), slog.String("param_in", param.In))
			continue
		}

		s := convertSchemaRef(param.Schema)
		s.Title = param.Name
		s.Description = param.Description
		s.In = loc
		input.Properties.Set(param.Name, s)
		if param.Required {
			input.AddRequired(param.Name)
		}
	}

	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return input, nil
	}
	media := op.RequestBody.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil {
		log.Warn("Request body found but application/json schema is missing")
		return input, nil
	}

	body := convertSchemaRef(media.Schema)
	if body.IsObject() && body.Properties != nil {
		for _, name := range body.Properties.Keys() {
			if _, exists := input.Properties.Get(name); exists {
				log.Warn("Name collision for input field, keeping the parameter", slog.String("field_name", name))
				continue
			}
			prop, _ := body.Properties.Get(name)
			prop.In = domain.LocationBody
			input.Properties.Set(name, prop)
			if body.IsRequired(name) {
				input.AddRequired(name)
			}
		}
		return input, nil
	}

	if _, exists := input.Properties.Get(requestBodyProperty); exists {
		return nil, fmt.Errorf("cannot represent non-object request body when %q is already used by a parameter", requestBodyProperty)
	}
	body.In = domain.LocationBody
	input.Properties.Set(requestBodyProperty, body)
	if op.RequestBody.Value.Required {
		input.AddRequired(requestBodyProperty)
	}
	return input, nil
}

func outputSchema(op *openapi3.Operation, successCode int, contentType string) *domain.Schema {
	if op.Responses == nil {
		return &domain.Schema{}
	}
	ref := op.Responses.Value(strconv.Itoa(successCode))
	if ref == nil || ref.Value == nil {
		return &domain.Schema{}
	}

	out := &domain.Schema{}
	if media := ref.Value.Content.Get(contentType); media != nil && media.Schema != nil {
		out = convertSchemaRef(media.Schema)
	}
	out.Required = nil
	if ref.Value.Description != nil {
		out.Description = *ref.Value.Description
	}
	return out
}

// servers lists the document's server URLs, falling back to the x-servers
// extension whose entries are either strings or objects with a url.
func servers(doc *openapi3.T) []string {
	var out []string
	for _, s := range doc.Servers {
		if s != nil && s.URL != "" {
			out = append(out, s.URL)
		}
	}
	if len(out) > 0 {
		return out
	}

	raw, ok := doc.Extensions["x-servers"]
	if !ok {
		return nil
	}
	var entries []any
	switch v := raw.(type) {
	case []any:
		entries = v
	case json.RawMessage:
		_ = json.Unmarshal(v, &entries)
	}
	for _, e := range entries {
		switch v := e.(type) {
		case string:
			out = append(out, v)
		case map[string]any:
			if u, ok := v["url"].(string); ok {
				out = append(out, u)
			}
		}
	}
	return out
}

// securitySchemes resolves the operation's security requirements, or the
// document-wide ones when the operation has none, against components.securitySchemes.
func securitySchemes(doc *openapi3.T, path, method string, op *openapi3.Operation) ([]domain.OpenAPISecurityScheme, error) {
	reqs := doc.Security
	if op.Security != nil {
		reqs = *op.Security
	}

	var defined openapi3.SecuritySchemes
	if doc.Components != nil {
		defined = doc.Components.SecuritySchemes
	}

	out := []domain.OpenAPISecurityScheme{}
	seen := map[string]bool{}
	for _, req := range reqs {
		names := make([]string, 0, len(req))
		for name := range req {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			ref, ok := defined[name]
			if !ok || ref == nil || ref.Value == nil {
				return nil, &domain.SynthesisError{
					Message: fmt.Sprintf("Invalid openapi spec, %s %s asks for a security scheme of %s, but no such security scheme was configured in the components.securitySchemes section", method, path, name),
				}
			}
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, toSecurityScheme(name, ref.Value))
		}
	}
	return out, nil
}

func toSecurityScheme(name string, s *openapi3.SecurityScheme) domain.OpenAPISecurityScheme {
	out := domain.OpenAPISecurityScheme{
		Type:             s.Type,
		Scheme:           s.Scheme,
		In:               s.In,
		Name:             s.Name,
		OpenIDConnectURL: s.OpenIdConnectUrl,
	}
	if out.Name == "" {
		out.Name = name
	}
	if s.Flows != nil {
		if raw, err := json.Marshal(s.Flows); err == nil {
			_ = json.Unmarshal(raw, &out.Flows)
		}
	}
	return out
}

// convertSchemaRef converts a resolved kin-openapi schema into a domain schema.
// Recursive references are cut at the second visit.
func convertSchemaRef(ref *openapi3.SchemaRef) *domain.Schema {
	return convert(ref, map[*openapi3.Schema]bool{})
}

func convert(ref *openapi3.SchemaRef, visiting map[*openapi3.Schema]bool) *domain.Schema {
	if ref == nil || ref.Value == nil {
		return &domain.Schema{}
	}
	s := ref.Value
	if visiting[s] {
		return &domain.Schema{Title: s.Title, Description: s.Description}
	}
	visiting[s] = true
	defer delete(visiting, s)

	if s.Type == nil && len(s.AllOf) == 1 && len(s.Properties) == 0 {
		out := convert(s.AllOf[0], visiting)
		if s.Title != "" {
			out.Title = s.Title
		}
		if s.Description != "" {
			out.Description = s.Description
		}
		return out
	}

	out := &domain.Schema{
		Title:       s.Title,
		Description: s.Description,
		Format:      s.Format,
		Default:     s.Default,
		Minimum:     s.Min,
		Maximum:     s.Max,
	}
	if s.Type != nil && len(*s.Type) > 0 {
		out.Type = domain.SchemaType((*s.Type)[0])
	}
	if len(s.Enum) > 0 {
		out.Enum = append([]any{}, s.Enum...)
	}
	if s.UniqueItems {
		v := true
		out.UniqueItems = &v
	}
	if s.MinLength > 0 {
		v := int(s.MinLength)
		out.MinLength = &v
	}
	if s.MaxLength != nil {
		v := int(*s.MaxLength)
		out.MaxLength = &v
	}
	if s.Items != nil {
		out.Items = convert(s.Items, visiting)
	}
	if len(s.Properties) > 0 {
		out.Properties = domain.NewProperties()
		names := make([]string, 0, len(s.Properties))
		for name := range s.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out.Properties.Set(name, convert(s.Properties[name], visiting))
		}
		out.Required = append([]string{}, s.Required...)
	}
	if s.AdditionalProperties.Schema != nil {
		out.AdditionalProperties = convert(s.AdditionalProperties.Schema, visiting)
	}
	for _, branches := range []openapi3.SchemaRefs{s.AnyOf, s.OneOf} {
		for _, b := range branches {
			out.AnyOf = append(out.AnyOf, convert(b, visiting))
		}
	}
	return out
}

func sortedPaths(doc *openapi3.T) []string {
	if doc.Paths == nil {
		return nil
	}
	paths := make([]string, 0, doc.Paths.Len())
	for p, item := range doc.Paths.Map() {
		if item != nil {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}

var supportedMethods = []string{http.MethodDelete, http.MethodGet, http.MethodPatch, http.MethodPost, http.MethodPut}

// sortedMethods lists the operations of a path item the binding can call.
func sortedMethods(item *openapi3.PathItem) []string {
	var methods []string
	for _, m := range supportedMethods {
		if item.GetOperation(m) != nil {
			methods = append(methods, m)
		}
	}
	return methods
}

var nonIdentifier = regexp.MustCompile(`[^a-zA-Z0-9]+`)

func fallbackToolName(method, path string) string {
	sanitized := strings.Trim(nonIdentifier.ReplaceAllString(path, "_"), "_")
	if sanitized == "" {
		return strings.ToLower(method)
	}
	return strings.ToLower(method) + "_" + sanitized
}
