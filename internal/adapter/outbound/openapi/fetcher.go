package openapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/i2y/orchestrate/internal/adapter/outbound/github"
)

// Document is a loaded OpenAPI document together with where it came from.
type Document struct {
	Source string
	Doc    *openapi3.T
}

// GitHubReader reads files referenced by github:// URLs.
type GitHubReader interface {
	FetchFile(ctx context.Context, githubURL string) ([]byte, error)
}

// Fetcher loads OpenAPI documents from files, URLs and GitHub repositories.
type Fetcher struct {
	httpClient     *http.Client
	github         GitHubReader
	autoDiscoverer *AutoDiscoverer
	logger         *slog.Logger
}

// NewFetcher creates a new OpenAPI document fetcher. gh may be nil, in which
// case github:// sources are rejected.
func NewFetcher(client *http.Client, gh GitHubReader, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		httpClient:     client,
		github:         gh,
		autoDiscoverer: NewAutoDiscoverer(client, logger),
		logger:         logger.With("component", "openapi_fetcher"),
	}
}

// Fetch loads an OpenAPI document from a file path, file:// URL, http(s) URL
// or github:// URL. $refs are resolved by the loader.
func (f *Fetcher) Fetch(ctx context.Context, source string) (*Document, error) {
	log := f.logger.With(slog.String("source", source))
	log.Info("Fetching OpenAPI document")

	var (
		data     []byte
		location *url.URL
	)
	switch {
	case github.IsGitHubURL(source):
		if f.github == nil {
			return nil, fmt.Errorf("cannot fetch %s: GitHub access is not configured", source)
		}
		content, err := f.github.FetchFile(ctx, source)
		if err != nil {
			log.Error("Failed to fetch document from GitHub", slog.Any("error", err))
			return nil, fmt.Errorf("failed to fetch OpenAPI document from GitHub: %w", err)
		}
		data = content

	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		resolved := f.autoDiscoverer.Resolve(ctx, source)
		if resolved != source {
			log.Info("Auto-discovered OpenAPI document", slog.String("resolved_url", resolved))
		}
		content, err := f.get(ctx, resolved)
		if err != nil {
			log.Error("Failed to fetch document from URL", slog.Any("error", err))
			return nil, err
		}
		data = content
		location, _ = url.Parse(resolved)

	default:
		path := strings.TrimPrefix(source, "file://")
		content, err := os.ReadFile(path)
		if err != nil {
			log.Error("Failed to read document from file", slog.Any("error", err))
			return nil, fmt.Errorf("failed to read OpenAPI document from file %s: %w", path, err)
		}
		data = content
		location = &url.URL{Path: path}
	}

	doc, err := load(ctx, data, location)
	if err != nil {
		log.Error("Failed to parse OpenAPI document", slog.Any("error", err))
		return nil, fmt.Errorf("failed to parse OpenAPI document from %s: %w", source, err)
	}

	if validateErr := doc.Validate(ctx); validateErr != nil {
		log.Warn("OpenAPI document validation failed", slog.Any("validation_error", validateErr))
	}

	log.Info("Successfully fetched and parsed OpenAPI document")
	return &Document{Source: source, Doc: doc}, nil
}

// ParseDocument loads an in-memory OpenAPI document without validating it.
func ParseDocument(ctx context.Context, source string, data []byte) (*Document, error) {
	doc, err := load(ctx, data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document from %s: %w", source, err)
	}
	return &Document{Source: source, Doc: doc}, nil
}

func load(ctx context.Context, data []byte, location *url.URL) (*openapi3.T, error) {
	data, err := normalizeServers(data)
	if err != nil {
		return nil, err
	}
	loader := &openapi3.Loader{Context: ctx, IsExternalRefsAllowed: true}
	if location == nil {
		return loader.LoadFromData(data)
	}
	return loader.LoadFromDataWithPath(data, location)
}

// normalizeServers rewrites plain string entries of the top-level servers list
// into {url: ...} objects, which is the only form the loader accepts.
func normalizeServers(data []byte) ([]byte, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return data, nil
	}

	top := root.Content[0]
	changed := false
	for i := 0; i+1 < len(top.Content); i += 2 {
		if top.Content[i].Value != "servers" || top.Content[i+1].Kind != yaml.SequenceNode {
			continue
		}
		for j, entry := range top.Content[i+1].Content {
			if entry.Kind != yaml.ScalarNode {
				continue
			}
			top.Content[i+1].Content[j] = &yaml.Node{
				Kind: yaml.MappingNode,
				Tag:  "!!map",
				Content: []*yaml.Node{
					{Kind: yaml.ScalarNode, Tag: "!!str", Value: "url"},
					{Kind: yaml.ScalarNode, Tag: "!!str", Value: entry.Value},
				},
			}
			changed = true
		}
	}
	if !changed {
		return data, nil
	}
	return yaml.Marshal(&root)
}

func (f *Fetcher) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", target, err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch OpenAPI document from URL %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch OpenAPI document from URL %s: status %s", target, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from %s: %w", target, err)
	}
	return body, nil
}
