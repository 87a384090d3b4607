// Package mcpserver exposes local tool specs as an MCP server, so tools can
// be tried from an MCP client before they are published.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpGoServer "github.com/mark3labs/mcp-go/server"

	"github.com/i2y/orchestrate/internal/domain"
)

// ToolCatalog is the set of tools the server advertises and runs.
type ToolCatalog interface {
	Execute(ctx context.Context) ([]*domain.ToolSpec, error)
	Call(ctx context.Context, name string, args map[string]any) (any, error)
}

// Server wraps an mcp-go server whose tools come from a ToolCatalog.
type Server struct {
	mcp     *mcpGoServer.MCPServer
	catalog ToolCatalog
	logger  *slog.Logger
}

func New(name, version string, catalog ToolCatalog, logger *slog.Logger) *Server {
	return &Server{
		mcp:     mcpGoServer.NewMCPServer(name, version),
		catalog: catalog,
		logger:  logger.With("component", "mcp_server"),
	}
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *mcpGoServer.MCPServer {
	return s.mcp
}

// Register adds every catalog tool to the server and returns how many were added.
func (s *Server) Register(ctx context.Context) (int, error) {
	tools, err := s.catalog.Execute(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list tools: %w", err)
	}
	for _, spec := range tools {
		schema, err := json.Marshal(spec.InputSchema)
		if err != nil {
			return 0, fmt.Errorf("failed to encode input schema of %s: %w", spec.Name, err)
		}
		s.mcp.AddTool(mcp.NewToolWithRawSchema(spec.Name, spec.Description, schema), s.handler(spec.Name))
		s.logger.Debug("Registered tool", slog.String("name", spec.Name), slog.String("binding", spec.Binding.String()))
	}
	s.logger.Info("Registered tools with MCP server", slog.Int("count", len(tools)))
	return len(tools), nil
}

// handler reports invocation failures as tool errors so the client sees the
// message instead of a protocol error.
func (s *Server) handler(name string) mcpGoServer.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := s.catalog.Call(ctx, name, req.GetArguments())
		if err != nil {
			s.logger.Warn("Tool call failed", slog.String("tool_name", name), slog.Any("error", err))
			return mcp.NewToolResultError(err.Error()), nil
		}
		if text, ok := result.(string); ok {
			return mcp.NewToolResultText(text), nil
		}
		data, err := json.Marshal(result)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

// ServeStdio serves over in and out until ctx is done or in is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("Starting in STDIO mode")
	return mcpGoServer.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// ServeSSE serves on addr until ctx is done, then shuts down within shutdownTimeout.
func (s *Server) ServeSSE(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	sseServer := mcpGoServer.NewSSEServer(s.mcp, mcpGoServer.WithBaseURL("http://"+addr))
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("MCP SSE server starting.", slog.String("address", addr))
		if err := sseServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			s.logger.Error("MCP SSE server failed to start.", slog.Any("error", err))
			return fmt.Errorf("sse server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down MCP SSE server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sseServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("MCP SSE server graceful shutdown failed", slog.Any("error", err))
		return err
	}
	return nil
}
