package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/i2y/orchestrate/internal/domain"
)

// PublishMetric counts entities created or updated on the backend, by
// entity.kind and action.
const PublishMetric = "orchestrate.publish.results"

// Action is what a publish did on the backend.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// Publishable is an entity ready to be sent to its store.
type Publishable struct {
	Name    string
	Kind    StoreKind
	Payload any
}

// PublishResult reports the outcome of one publish.
type PublishResult struct {
	Name   string
	Kind   StoreKind
	ID     string
	Action Action
}

// DraftCache holds the existing records of each store, fetched the first
// time a store is consulted. It is never invalidated, so it describes the
// backend as it was when the batch started.
type DraftCache struct {
	mu      sync.Mutex
	byStore map[StoreKind][]Draft
}

func NewDraftCache() *DraftCache {
	return &DraftCache{byStore: make(map[StoreKind][]Draft)}
}

func (c *DraftCache) drafts(ctx context.Context, store DraftStore) ([]Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if drafts, ok := c.byStore[store.Kind()]; ok {
		return drafts, nil
	}
	drafts, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range drafts {
		drafts[i].Kind = store.Kind()
	}
	c.byStore[store.Kind()] = drafts
	return drafts, nil
}

// Dispatcher decides between create and update for each entity of a batch.
// Build one per batch.
type Dispatcher struct {
	stores    Stores
	cache     *DraftCache
	published metric.Int64Counter
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher recording to the global MeterProvider.
func NewDispatcher(stores Stores, logger *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		stores: stores,
		cache:  NewDraftCache(),
		logger: logger.With("component", "dispatcher"),
	}
	published, err := otel.GetMeterProvider().Meter("orchestrate/usecase").Int64Counter(
		PublishMetric,
		metric.WithDescription("Entities created or updated on the backend"),
	)
	if err != nil {
		d.logger.Warn("Failed to create publish counter", slog.Any("error", err))
	}
	d.published = published
	return d
}

func entityName(kind StoreKind) string {
	switch kind {
	case StoreNativeAgents, StoreExternalAgents, StoreAssistantAgents:
		return "agent"
	case StoreKnowledgeBases:
		return "knowledge base"
	}
	return string(kind)
}

// family is the set of stores sharing a name space with kind.
func (d *Dispatcher) family(kind StoreKind) ([]DraftStore, error) {
	if entityName(kind) == "agent" {
		var stores []DraftStore
		for _, s := range d.stores.Agents() {
			if s != nil {
				stores = append(stores, s)
			}
		}
		return stores, nil
	}
	store, err := d.stores.Store(kind)
	if err != nil {
		return nil, err
	}
	return []DraftStore{store}, nil
}

// PublishOrUpdate creates e when no record has its name, updates the one
// record that does when it has the same kind, and fails otherwise.
func (d *Dispatcher) PublishOrUpdate(ctx context.Context, e Publishable) (*PublishResult, error) {
	ctx, span := tracer.Start(ctx, "PublishOrUpdate")
	defer span.End()
	span.SetAttributes(attribute.String("entity.name", e.Name), attribute.String("entity.kind", string(e.Kind)))

	log := d.logger.With(slog.String("name", e.Name), slog.String("kind", string(e.Kind)))

	target, err := d.stores.Store(e.Kind)
	if err != nil {
		return nil, err
	}
	family, err := d.family(e.Kind)
	if err != nil {
		return nil, err
	}

	var matches []Draft
	for _, store := range family {
		drafts, err := d.cache.drafts(ctx, store)
		if err != nil {
			log.Error("Failed to list existing records", slog.Any("error", err))
			return nil, fmt.Errorf("failed to list existing %ss: %w", entityName(store.Kind()), err)
		}
		for _, dr := range drafts {
			if dr.Name == e.Name {
				matches = append(matches, dr)
			}
		}
	}

	switch len(matches) {
	case 0:
		id, err := target.Create(ctx, e.Payload)
		if err != nil {
			log.Error("Failed to create", slog.Any("error", err))
			return nil, fmt.Errorf("failed to create %s '%s': %w", entityName(e.Kind), e.Name, err)
		}
		log.Info("Created", slog.String("id", id))
		d.count(ctx, e.Kind, ActionCreated)
		return &PublishResult{Name: e.Name, Kind: e.Kind, ID: id, Action: ActionCreated}, nil

	case 1:
		existing := matches[0]
		if existing.Kind != e.Kind {
			err := &domain.ReferenceError{
				Reason: domain.ReasonKindMismatch,
				Entity: entityName(e.Kind),
				Name:   e.Name,
				Detail: fmt.Sprintf("existing kind is '%s', cannot publish it as '%s'", existing.Kind, e.Kind),
			}
			log.Error("Kind mismatch", slog.String("existing_kind", string(existing.Kind)))
			return nil, err
		}
		if err := target.Update(ctx, existing.ID, e.Payload); err != nil {
			log.Error("Failed to update", slog.String("id", existing.ID), slog.Any("error", err))
			return nil, fmt.Errorf("failed to update %s '%s': %w", entityName(e.Kind), e.Name, err)
		}
		log.Info("Updated", slog.String("id", existing.ID))
		d.count(ctx, e.Kind, ActionUpdated)
		return &PublishResult{Name: e.Name, Kind: e.Kind, ID: existing.ID, Action: ActionUpdated}, nil
	}

	err = &domain.ReferenceError{
		Reason: domain.ReasonAmbiguous,
		Entity: entityName(e.Kind),
		Name:   e.Name,
		Detail: fmt.Sprintf("the backend holds %d records with this name, the CLI and the backend are out of sync", len(matches)),
	}
	log.Error("Duplicate records on the backend", slog.Int("matches", len(matches)))
	return nil, err
}

func (d *Dispatcher) count(ctx context.Context, kind StoreKind, action Action) {
	if d.published == nil {
		return
	}
	d.published.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity.kind", string(kind)),
		attribute.String("action", string(action)),
	))
}

// Batch publishes entities in input order and stops at the first failure.
// The results of the entities published before the failure are returned.
// A batch naming the same entity twice is rejected before anything is sent,
// since the cached listing would not see the first creation.
func (d *Dispatcher) Batch(ctx context.Context, entities []Publishable) ([]PublishResult, error) {
	seen := make(map[string]bool, len(entities))
	for _, e := range entities {
		key := entityName(e.Kind) + "/" + e.Name
		if seen[key] {
			return nil, &domain.ValidationError{
				Field:   "name",
				Message: fmt.Sprintf("%s '%s' appears more than once in the batch", entityName(e.Kind), e.Name),
			}
		}
		seen[key] = true
	}

	results := make([]PublishResult, 0, len(entities))
	for _, e := range entities {
		res, err := d.PublishOrUpdate(ctx, e)
		if err != nil {
			return results, err
		}
		results = append(results, *res)
	}
	return results, nil
}
