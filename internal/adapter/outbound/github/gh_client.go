package github

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// URLPrefix marks a document stored in a GitHub repository.
const URLPrefix = "github://"

// Runner executes an external command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Location is a parsed github:// URL.
type Location struct {
	Owner string
	Repo  string
	Path  string
	Ref   string
}

// Client wraps the gh CLI for reading repository files.
type Client struct {
	run    Runner
	logger *slog.Logger
}

// NewClient creates a gh-backed client. A nil runner executes the real gh binary.
func NewClient(run Runner, logger *slog.Logger) *Client {
	if run == nil {
		run = execRunner
	}
	return &Client{
		run:    run,
		logger: logger.With("component", "github_client"),
	}
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%s command failed: %s", name, strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("%s command failed: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// ParseURL parses github://owner/repo/path/to/file[@ref].
func ParseURL(githubURL string) (Location, error) {
	if !IsGitHubURL(githubURL) {
		return Location{}, fmt.Errorf("invalid GitHub URL format: %s", githubURL)
	}

	urlPath := strings.TrimPrefix(githubURL, URLPrefix)

	var loc Location
	if i := strings.LastIndex(urlPath, "@"); i >= 0 {
		loc.Ref = urlPath[i+1:]
		urlPath = urlPath[:i]
	}

	parts := strings.SplitN(urlPath, "/", 3)
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Location{}, fmt.Errorf("invalid GitHub URL format: expected github://owner/repo/path/to/file")
	}
	loc.Owner, loc.Repo, loc.Path = parts[0], parts[1], parts[2]
	return loc, nil
}

// APIPath returns the contents API path of the location.
func (l Location) APIPath() string {
	p := fmt.Sprintf("repos/%s/%s/contents/%s", l.Owner, l.Repo, l.Path)
	if l.Ref != "" {
		p += "?ref=" + l.Ref
	}
	return p
}

// FetchFile retrieves the raw content of a file referenced by a github:// URL.
func (c *Client) FetchFile(ctx context.Context, githubURL string) ([]byte, error) {
	loc, err := ParseURL(githubURL)
	if err != nil {
		return nil, err
	}
	log := c.logger.With(slog.String("owner", loc.Owner), slog.String("repo", loc.Repo), slog.String("path", loc.Path))

	if err := c.checkAuth(ctx); err != nil {
		return nil, err
	}

	log.Debug("Fetching file from GitHub")
	content, err := c.run(ctx, "gh", "api", loc.APIPath(), "-H", "Accept: application/vnd.github.raw")
	if err != nil {
		log.Error("Failed to fetch file from GitHub", slog.Any("error", err))
		return nil, fmt.Errorf("failed to fetch %s: %w", githubURL, err)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, fmt.Errorf("empty response from GitHub for %s", githubURL)
	}
	return content, nil
}

// checkAuth verifies that the gh CLI is installed and authenticated.
func (c *Client) checkAuth(ctx context.Context) error {
	_, err := c.run(ctx, "gh", "auth", "status")
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "executable file not found"):
		return fmt.Errorf("gh CLI is not installed. Please install it from https://cli.github.com/")
	case strings.Contains(msg, "not logged in"):
		return fmt.Errorf("gh CLI is not authenticated. Please run 'gh auth login' first")
	}
	return fmt.Errorf("gh auth check failed: %w", err)
}

// IsGitHubURL checks if a URL is a GitHub URL
func IsGitHubURL(url string) bool {
	return strings.HasPrefix(url, URLPrefix)
}
