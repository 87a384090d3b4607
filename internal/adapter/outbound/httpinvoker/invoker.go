package httpinvoker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/i2y/orchestrate/internal/domain"
)

// Invoker executes tools bound to an OpenAPI operation using standard net/http.
type Invoker struct {
	client *http.Client
	logger *slog.Logger
}

// New creates a new HTTP Invoker.
func New(client *http.Client, logger *slog.Logger) *Invoker {
	if client == nil {
		client = http.DefaultClient
	}
	return &Invoker{
		client: client,
		logger: logger.With("component", "http_invoker"),
	}
}

// request is the placement of tool arguments onto an HTTP call.
type request struct {
	path    string
	query   url.Values
	headers http.Header
	body    map[string]any
}

// Invoke calls the operation behind spec. server overrides the binding's
// server when non-empty. creds may be nil for unauthenticated operations.
func (i *Invoker) Invoke(ctx context.Context, spec *domain.ToolSpec, server string, creds *domain.Credentials, args map[string]any) (any, error) {
	binding := spec.Binding.OpenAPI
	if binding == nil {
		return nil, fmt.Errorf("tool %s has no openapi binding", spec.Name)
	}
	if server == "" {
		server = binding.Server()
	}
	log := i.logger.With(
		slog.String("tool", spec.Name),
		slog.String("method", binding.HTTPMethod),
		slog.String("path", binding.HTTPPath),
		slog.String("server", server),
	)

	// --- 1. Place arguments by parameter location --- //
	placed, err := place(spec, binding.HTTPPath, args)
	if err != nil {
		log.Warn("Invalid tool arguments", slog.Any("error", err))
		return nil, err
	}

	base, err := url.Parse(strings.TrimRight(server, "/") + placed.path)
	if err != nil {
		log.Error("Failed to parse server URL", slog.Any("error", err))
		return nil, fmt.Errorf("invalid server URL %s: %w", server, err)
	}
	if encoded := placed.query.Encode(); encoded != "" {
		base.RawQuery = encoded
	}
	finalURL := base.String()
	log = log.With(slog.String("url", finalURL))

	// --- 2. Build the request --- //
	var body io.Reader
	if len(placed.body) > 0 {
		data, err := json.Marshal(placed.body)
		if err != nil {
			log.Error("Failed to marshal request body", slog.Any("error", err))
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, binding.HTTPMethod, finalURL, body)
	if err != nil {
		log.Error("Failed to create HTTP request", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, vs := range placed.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	applyCredentials(req, binding.Security, creds)

	// --- 3. Execute --- //
	log.Debug("Executing HTTP request")
	resp, err := i.client.Do(req)
	if err != nil {
		log.Error("HTTP request failed", slog.Any("error", err))
		return nil, fmt.Errorf("request execution failed: %w", err)
	}
	defer resp.Body.Close()

	log = log.With(slog.Int("status_code", resp.StatusCode))
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Failed to read response body", slog.Any("error", err))
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// --- 4. Process the response --- //
	if resp.StatusCode != binding.SuccessStatusCode {
		log.Warn("Received unexpected status code", slog.Int("expected", binding.SuccessStatusCode))
		return nil, &domain.HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if len(respBody) == 0 {
		return "", nil
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "json") {
		var result any
		if err := json.Unmarshal(respBody, &result); err == nil {
			return result, nil
		}
		log.Warn("Failed to unmarshal JSON response, returning raw body as string")
	}
	return string(respBody), nil
}

// place resolves every input property (argument, then schema default, then
// a required error) and routes it to its location. A null argument counts as
// absent. Properties without a location are sent in the body.
func place(spec *domain.ToolSpec, path string, args map[string]any) (*request, error) {
	r := &request{path: path, query: url.Values{}, headers: http.Header{}, body: map[string]any{}}
	input := spec.InputSchema
	if input == nil || input.Properties == nil {
		return r, nil
	}
	for _, name := range input.Properties.Keys() {
		prop, _ := input.Properties.Get(name)
		value, ok := args[name]
		if value == nil {
			ok = false
		}
		if !ok && prop.Default != nil {
			value, ok = prop.Default, true
		}
		if !ok {
			if input.IsRequired(name) {
				return nil, &domain.ParameterError{Message: fmt.Sprintf("Missing required parameter: %s", name)}
			}
			continue
		}
		switch prop.In {
		case domain.LocationPath:
			r.path = strings.ReplaceAll(r.path, "{"+name+"}", url.PathEscape(stringify(value)))
		case domain.LocationQuery:
			if list, isList := value.([]any); isList {
				for _, v := range list {
					r.query.Add(name, stringify(v))
				}
				continue
			}
			r.query.Set(name, stringify(value))
		case domain.LocationHeader:
			r.headers.Set(name, stringify(value))
		default:
			r.body[name] = value
		}
	}
	return r, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any, []any:
		data, err := json.Marshal(t)
		if err == nil {
			return string(data)
		}
	}
	return fmt.Sprint(v)
}

// applyCredentials sets authentication from the connection. API keys go
// where the operation's apiKey scheme says, defaulting to an X-API-Key header.
func applyCredentials(req *http.Request, security []domain.OpenAPISecurityScheme, creds *domain.Credentials) {
	if creds == nil {
		return
	}
	switch {
	case creds.Type == domain.ConnectionBasicAuth:
		req.SetBasicAuth(creds.Get("username"), creds.Get("password"))
	case creds.Type == domain.ConnectionBearerToken:
		req.Header.Set("Authorization", "Bearer "+creds.Get("token"))
	case creds.Type == domain.ConnectionAPIKeyAuth:
		in, name := "header", "X-API-Key"
		for _, s := range security {
			if strings.EqualFold(s.Type, "apiKey") {
				in, name = s.In, s.Name
				break
			}
		}
		if in == "query" {
			q := req.URL.Query()
			q.Set(name, creds.Get("api_key"))
			req.URL.RawQuery = q.Encode()
			return
		}
		req.Header.Set(name, creds.Get("api_key"))
	case creds.Type.IsOAuth():
		if token := creds.Get("access_token"); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
}
