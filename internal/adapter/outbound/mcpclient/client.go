// Package mcpclient talks to MCP servers: it lists the tools a server exposes
// when a toolkit is imported and calls them for mcp-bound tools.
package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/i2y/orchestrate/internal/domain"
)

const (
	clientName    = "orchestrate"
	clientVersion = "0.1.0"
)

// Target identifies the MCP server to talk to.
type Target = domain.MCPServer

// TargetFromBinding builds a target from an mcp tool binding.
func TargetFromBinding(b *domain.MCPBinding) Target {
	return b.Server()
}

// Dialer opens a started, not yet initialized MCP session.
type Dialer func(ctx context.Context, target Target) (client.MCPClient, error)

// Tool is a tool advertised by an MCP server.
type Tool struct {
	Name        string
	Description string
	InputSchema *domain.Schema
}

// Client opens one session per operation and closes it before returning.
type Client struct {
	dial   Dialer
	logger *slog.Logger
}

// New creates a client that dials SSE URLs and stdio commands.
func New(logger *slog.Logger) *Client {
	return NewWithDialer(Dial, logger)
}

// NewWithDialer creates a client with a custom session factory.
func NewWithDialer(dial Dialer, logger *slog.Logger) *Client {
	return &Client{
		dial:   dial,
		logger: logger.With("component", "mcp_client"),
	}
}

// Dial is the default Dialer.
func Dial(ctx context.Context, target Target) (client.MCPClient, error) {
	switch {
	case target.URL != "":
		c, err := client.NewSSEMCPClient(target.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create sse client: %w", err)
		}
		if err := c.Start(ctx); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to start sse client: %w", err)
		}
		return c, nil
	case target.Command != "":
		c, err := client.NewStdioMCPClient(target.Command, target.Env, target.Args...)
		if err != nil {
			return nil, fmt.Errorf("failed to create stdio client: %w", err)
		}
		return c, nil
	}
	return nil, errors.New("mcp target needs either a url or a command")
}

func (c *Client) session(ctx context.Context, target Target) (client.MCPClient, error) {
	session, err := c.dial(ctx, target)
	if err != nil {
		return nil, err
	}
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: clientName, Version: clientVersion}
	if _, err := session.Initialize(ctx, req); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to initialize mcp session with %s: %w", target, err)
	}
	return session, nil
}

// ListTools returns every tool the server advertises.
func (c *Client) ListTools(ctx context.Context, target Target) ([]Tool, error) {
	log := c.logger.With(slog.String("target", target.String()))
	session, err := c.session(ctx, target)
	if err != nil {
		log.Error("Failed to open MCP session", slog.Any("error", err))
		return nil, err
	}
	defer session.Close()

	result, err := session.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		log.Error("Failed to list MCP tools", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list tools of %s: %w", target, err)
	}

	tools := make([]Tool, 0, len(result.Tools))
	for _, t := range result.Tools {
		tool := Tool{Name: t.Name, Description: t.Description, InputSchema: domain.ObjectSchema()}
		if data, err := json.Marshal(t.InputSchema); err == nil {
			var schema domain.Schema
			if err := json.Unmarshal(data, &schema); err == nil {
				tool.InputSchema = &schema
			}
		}
		tools = append(tools, tool)
	}
	log.Debug("Listed MCP tools", slog.Int("count", len(tools)))
	return tools, nil
}

// ListToolNames returns the names of the tools the server advertises.
func (c *Client) ListToolNames(ctx context.Context, target Target) ([]string, error) {
	tools, err := c.ListTools(ctx, target)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return names, nil
}

// CallTool calls one tool. Text content that holds JSON is decoded; other
// text is returned as a string. A tool-level error becomes a Go error.
func (c *Client) CallTool(ctx context.Context, target Target, name string, args map[string]any) (any, error) {
	log := c.logger.With(slog.String("target", target.String()), slog.String("tool", name))
	session, err := c.session(ctx, target)
	if err != nil {
		log.Error("Failed to open MCP session", slog.Any("error", err))
		return nil, err
	}
	defer session.Close()

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := session.CallTool(ctx, req)
	if err != nil {
		log.Error("MCP tool call failed", slog.Any("error", err))
		return nil, fmt.Errorf("failed to call tool %s: %w", name, err)
	}

	var texts []string
	for _, content := range result.Content {
		if text, ok := content.(mcp.TextContent); ok {
			texts = append(texts, text.Text)
		}
	}
	joined := strings.Join(texts, "\n")
	if result.IsError {
		log.Warn("MCP tool reported an error", slog.String("message", joined))
		return nil, fmt.Errorf("tool %s returned an error: %s", name, joined)
	}

	var decoded any
	if err := json.Unmarshal([]byte(joined), &decoded); err == nil {
		return decoded, nil
	}
	return joined, nil
}
