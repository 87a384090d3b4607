package openapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Common OpenAPI schema paths used by various frameworks
var commonOpenAPIPaths = []string{
	"/openapi.json",            // FastAPI default
	"/docs/openapi.json",       // Alternative FastAPI path
	"/swagger.json",            // Swagger/OpenAPI 2.0
	"/v3/api-docs",             // SpringDoc OpenAPI 3.0
	"/api-docs",                // SpringFox
	"/api/openapi.json",        // Custom API prefix
	"/api/v1/openapi.json",     // Versioned API
	"/api/swagger.json",        // Alternative swagger path
	"/swagger/v1/swagger.json", // .NET default
	"/openapi.yaml",
	"/api-spec.json",
}

const probeTimeout = 5 * time.Second

// AutoDiscoverer attempts to find OpenAPI documents from base URLs
type AutoDiscoverer struct {
	client *http.Client
	logger *slog.Logger
}

// NewAutoDiscoverer creates a new OpenAPI document auto-discoverer
func NewAutoDiscoverer(client *http.Client, logger *slog.Logger) *AutoDiscoverer {
	return &AutoDiscoverer{
		client: client,
		logger: logger.With("component", "openapi_autodiscoverer"),
	}
}

// LooksLikeDocument reports whether source already names a document rather
// than the root of a service.
func LooksLikeDocument(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasSuffix(lower, ".json") ||
		strings.HasSuffix(lower, ".yaml") ||
		strings.HasSuffix(lower, ".yml") ||
		strings.Contains(lower, "openapi") ||
		strings.Contains(lower, "swagger") ||
		strings.Contains(lower, "api-docs")
}

// Resolve returns a document URL for source. Direct document URLs are returned
// as-is; base URLs are probed, and the original source is kept when nothing is found.
func (d *AutoDiscoverer) Resolve(ctx context.Context, source string) string {
	log := d.logger.With(slog.String("source", source))

	if LooksLikeDocument(source) {
		log.Debug("Source appears to be a direct schema URL")
		return source
	}

	log.Info("Source appears to be a base URL, attempting auto-discovery")
	discovered, err := d.Discover(ctx, source)
	if err != nil {
		log.Warn("Auto-discovery failed, using original source", slog.Any("error", err))
		return source
	}
	return discovered
}

// Discover probes the well-known document paths below baseURL.
func (d *AutoDiscoverer) Discover(ctx context.Context, baseURL string) (string, error) {
	log := d.logger.With(slog.String("base_url", baseURL))

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Scheme == "" {
		return "", fmt.Errorf("base URL must include scheme (http:// or https://)")
	}

	for _, path := range commonOpenAPIPaths {
		candidate := strings.TrimRight(baseURL, "/") + path
		found, err := d.probe(ctx, candidate)
		if err != nil {
			log.Debug("Failed to check endpoint", slog.String("url", candidate), slog.Any("error", err))
			continue
		}
		if found {
			log.Info("Found OpenAPI schema", slog.String("url", candidate))
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no OpenAPI schema found at base URL: %s", baseURL)
}

func (d *AutoDiscoverer) probe(ctx context.Context, candidate string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, candidate, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json, application/vnd.oai.openapi+json, application/yaml")
	req.Header.Set("User-Agent", "orchestrate/1.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, nil
	}

	contentType := resp.Header.Get("Content-Type")
	return strings.Contains(contentType, "json") || strings.Contains(contentType, "yaml"), nil
}
