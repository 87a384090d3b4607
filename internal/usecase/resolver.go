package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/i2y/orchestrate/internal/domain"
)

var tracer = otel.Tracer("orchestrate/usecase")

// Resolver replaces human-readable references (agent, tool and knowledge
// base names, connection app ids) with backend ids.
type Resolver struct {
	stores Stores
	logger *slog.Logger
}

// NewResolver creates a resolver over the given stores.
func NewResolver(stores Stores, logger *slog.Logger) *Resolver {
	return &Resolver{
		stores: stores,
		logger: logger.With("component", "resolver"),
	}
}

// ResolveAgent rewrites the references of agent in place.
func (r *Resolver) ResolveAgent(ctx context.Context, agent domain.Agent) error {
	ctx, span := tracer.Start(ctx, "ResolveAgent")
	defer span.End()
	span.SetAttributes(attribute.String("agent.name", agent.AgentName()), attribute.String("agent.kind", string(agent.AgentKind())))

	return agent.Accept(&agentResolver{ctx: ctx, r: r})
}

// agentResolver is the AgentVisitor that resolves each variant's references.
type agentResolver struct {
	ctx context.Context
	r   *Resolver
}

func (v *agentResolver) VisitNative(a *domain.NativeAgent) error {
	var err error
	if a.Collaborators, err = v.r.ResolveNames(v.ctx, "agent", v.r.stores.Agents(), a.Collaborators); err != nil {
		return err
	}
	if a.Tools, err = v.r.ResolveNames(v.ctx, "tool", []DraftStore{v.r.stores.Tools}, a.Tools); err != nil {
		return err
	}
	if a.KnowledgeBase, err = v.r.ResolveNames(v.ctx, "knowledge base", []DraftStore{v.r.stores.KnowledgeBases}, a.KnowledgeBase); err != nil {
		return err
	}
	return nil
}

func (v *agentResolver) VisitExternal(a *domain.ExternalAgent) error {
	if a.AppID == "" {
		return nil
	}
	id, err := v.r.ResolveConnectionID(v.ctx, a.AppID)
	if err != nil {
		return err
	}
	a.ConnectionID = id
	return nil
}

func (v *agentResolver) VisitAssistant(a *domain.AssistantAgent) error {
	if a.AppID == "" {
		return nil
	}
	id, err := v.r.ResolveConnectionID(v.ctx, a.AppID)
	if err != nil {
		return err
	}
	a.ConnectionID = id
	a.Config.ConnectionID = id
	return nil
}

// ResolveNames looks every name up across stores and returns the ids in
// input order. It stops at the first name that is missing or that more than
// one record carries.
func (r *Resolver) ResolveNames(ctx context.Context, entity string, stores []DraftStore, names []string) ([]string, error) {
	if len(names) == 0 {
		return names, nil
	}
	log := r.logger.With(slog.String("entity", entity))

	byName := make(map[string][]Draft)
	for _, store := range stores {
		if store == nil {
			continue
		}
		drafts, err := store.GetDraftsByNames(ctx, names)
		if err != nil {
			log.Error("Failed to look up references", slog.Any("error", err))
			return nil, fmt.Errorf("failed to look up %s references: %w", entity, err)
		}
		for _, d := range drafts {
			byName[d.Name] = append(byName[d.Name], d)
		}
	}

	ids := make([]string, 0, len(names))
	for _, name := range names {
		matches := byName[name]
		switch len(matches) {
		case 0:
			err := &domain.ReferenceError{Reason: domain.ReasonNotFound, Entity: entity, Name: name}
			log.Error("Reference not found", slog.String("name", name))
			return nil, err
		case 1:
			ids = append(ids, matches[0].ID)
		default:
			err := &domain.ReferenceError{Reason: domain.ReasonAmbiguous, Entity: entity, Name: name}
			log.Error("Ambiguous reference", slog.String("name", name), slog.Int("matches", len(matches)))
			return nil, err
		}
	}
	return ids, nil
}

// lookupConnection returns the single connection registered under appID.
func (r *Resolver) lookupConnection(ctx context.Context, appID string) (*domain.Connection, error) {
	conns, err := r.stores.Connections.GetDraftByAppID(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up connection %s: %w", appID, err)
	}
	switch len(conns) {
	case 0:
		return nil, &domain.ReferenceError{Reason: domain.ReasonNotFound, Entity: "connection", Name: appID,
			Detail: fmt.Sprintf("No connection exists with the app-id '%s'", appID)}
	case 1:
		return &conns[0], nil
	}
	return nil, &domain.ReferenceError{Reason: domain.ReasonAmbiguous, Entity: "connection", Name: appID}
}

// ResolveConnectionID returns the connection id of an app id.
func (r *Resolver) ResolveConnectionID(ctx context.Context, appID string) (string, error) {
	conn, err := r.lookupConnection(ctx, appID)
	if err != nil {
		r.logger.Error("Failed to resolve connection", slog.String("app_id", appID), slog.Any("error", err))
		return "", err
	}
	return conn.ConnectionID, nil
}

// ResolveConnections maps the runtime app id of every --app-id value to a
// connection id and checks the tool's expected credentials against them.
// Every violation is collected into a single BatchError.
func (r *Resolver) ResolveConnections(ctx context.Context, appIDs []string, expected []domain.ExpectedCredential) (map[string]string, error) {
	ctx, span := tracer.Start(ctx, "ResolveConnections")
	defer span.End()

	mappings := make([]domain.AppIDMapping, 0, len(appIDs))
	for _, raw := range appIDs {
		m, err := domain.ParseAppIDMapping(raw)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}

	var violations []error
	resolved := make(map[string]string, len(mappings))
	types := make(map[string]domain.ConnectionType, len(mappings))
	provided := make(map[string]bool, len(mappings))
	for _, m := range mappings {
		provided[m.RuntimeID] = true
		conn, err := r.lookupConnection(ctx, m.LocalID)
		if err != nil {
			violations = append(violations, err)
			continue
		}
		resolved[m.RuntimeID] = conn.ConnectionID
		types[m.RuntimeID] = conn.Type()
	}

	for _, e := range expected {
		if !provided[e.AppID] {
			violations = append(violations, &domain.ValidationError{
				Field:   "expected_credentials",
				Message: fmt.Sprintf("the tool requires a connection for app-id '%s', provide one with --app-id", e.AppID),
			})
			continue
		}
		got, ok := types[e.AppID]
		if e.Type != nil && ok && got != *e.Type {
			violations = append(violations, &domain.ValidationError{
				Field:   "expected_credentials",
				Message: fmt.Sprintf("the connection for app-id '%s' has type '%s' but the tool expects '%s'", e.AppID, got, *e.Type),
			})
		}
	}

	if err := domain.NewBatchError("connection validation failed", violations); err != nil {
		r.logger.Error("Connection validation failed", slog.Int("violations", len(violations)))
		return nil, err
	}
	return resolved, nil
}
