package invoker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/i2y/orchestrate/internal/adapter/outbound/mcpclient"
	"github.com/i2y/orchestrate/internal/domain"
)

// ErrRemoteOnly is returned for bindings that only the remote runtime can execute.
var ErrRemoteOnly = errors.New("binding can only be executed by the remote runtime")

// HTTPInvoker calls OpenAPI-bound tools.
type HTTPInvoker interface {
	Invoke(ctx context.Context, spec *domain.ToolSpec, server string, creds *domain.Credentials, args map[string]any) (any, error)
}

// MCPCaller calls tools on an MCP server.
type MCPCaller interface {
	CallTool(ctx context.Context, target mcpclient.Target, name string, args map[string]any) (any, error)
}

// Router routes invocations to the invoker of the tool's binding kind.
type Router struct {
	httpInvoker HTTPInvoker
	mcpCaller   MCPCaller
	logger      *slog.Logger
}

// NewRouter creates a new invoker router
func NewRouter(httpInv HTTPInvoker, mcpCaller MCPCaller, logger *slog.Logger) *Router {
	return &Router{
		httpInvoker: httpInv,
		mcpCaller:   mcpCaller,
		logger:      logger.With("component", "invoker_router"),
	}
}

// Invoke dispatches the call on the binding of spec. server overrides the
// binding's endpoint when non-empty.
func (r *Router) Invoke(ctx context.Context, spec *domain.ToolSpec, server string, creds *domain.Credentials, args map[string]any) (any, error) {
	d := &dispatch{ctx: ctx, router: r, spec: spec, server: server, creds: creds, args: args}
	if err := spec.Binding.Accept(d); err != nil {
		return nil, err
	}
	return d.result, nil
}

// dispatch is the per-call BindingVisitor.
type dispatch struct {
	ctx    context.Context
	router *Router
	spec   *domain.ToolSpec
	server string
	creds  *domain.Credentials
	args   map[string]any
	result any
}

func (d *dispatch) log() *slog.Logger {
	return d.router.logger.With(slog.String("tool", d.spec.Name), slog.String("binding", d.spec.Binding.String()))
}

func (d *dispatch) VisitOpenAPI(*domain.OpenAPIBinding) error {
	d.log().Info("Routing to HTTP invoker")
	result, err := d.router.httpInvoker.Invoke(d.ctx, d.spec, d.server, d.creds, d.args)
	d.result = result
	return err
}

func (d *dispatch) VisitMCP(b *domain.MCPBinding) error {
	d.log().Info("Routing to MCP client")
	target := mcpclient.TargetFromBinding(b)
	if d.server != "" {
		target = mcpclient.Target{URL: d.server}
	}
	result, err := d.router.mcpCaller.CallTool(d.ctx, target, d.spec.Name, d.args)
	d.result = result
	return err
}

func (d *dispatch) remoteOnly() error {
	d.log().Error("Binding is not executable locally")
	return fmt.Errorf("tool %s: %w", d.spec.Name, ErrRemoteOnly)
}

func (d *dispatch) VisitPython(*domain.PythonBinding) error         { return d.remoteOnly() }
func (d *dispatch) VisitSkill(*domain.SkillBinding) error           { return d.remoteOnly() }
func (d *dispatch) VisitClientSide(*domain.ClientSideBinding) error { return d.remoteOnly() }
