// Package memstore is an in-memory backend. It serves --dry-run and tests.
// NOTE: This implementation is not persistent and data will be lost on restart.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/i2y/orchestrate/internal/domain"
	"github.com/i2y/orchestrate/internal/usecase"
)

type record struct {
	draft    usecase.Draft
	payload  any
	artifact []byte
	seq      int
}

// Store is one in-memory collection. Unlike the real backend it does not
// enforce unique names, so tests can seed duplicates.
type Store struct {
	mu      sync.RWMutex
	kind    usecase.StoreKind
	records map[string]*record
	seq     int
	logger  *slog.Logger
}

// NewStore creates an empty collection of the given kind.
func NewStore(kind usecase.StoreKind, logger *slog.Logger) *Store {
	return &Store{
		kind:    kind,
		records: make(map[string]*record),
		logger:  logger.With("component", "mem_store", "kind", string(kind)),
	}
}

func (s *Store) Kind() usecase.StoreKind { return s.kind }

// Seed inserts records as they are, keeping their ids.
func (s *Store) Seed(drafts ...usecase.Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range drafts {
		d.Kind = s.kind
		s.seq++
		s.records[d.ID] = &record{draft: d, seq: s.seq}
	}
}

func (s *Store) sorted() []*record {
	list := make([]*record, 0, len(s.records))
	for _, r := range s.records {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })
	return list
}

// List returns the records in insertion order.
func (s *Store) List(ctx context.Context) ([]usecase.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]usecase.Draft, 0, len(s.records))
	for _, r := range s.sorted() {
		list = append(list, r.draft)
	}
	s.logger.Debug("Listed records", slog.Int("count", len(list)))
	return list, nil
}

func (s *Store) GetDraftsByNames(ctx context.Context, names []string) ([]usecase.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var out []usecase.Draft
	for _, r := range s.sorted() {
		if wanted[r.draft.Name] {
			out = append(out, r.draft)
		}
	}
	return out, nil
}

// payloadHead reads the name and description every payload carries.
func payloadHead(payload any) (string, string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", "", fmt.Errorf("payload is not serializable: %w", err)
	}
	var head struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", "", fmt.Errorf("payload is not an object: %w", err)
	}
	if head.Name == "" {
		return "", "", fmt.Errorf("payload has no name")
	}
	return head.Name, head.Description, nil
}

func (s *Store) Create(ctx context.Context, payload any) (string, error) {
	name, desc, err := payloadHead(payload)
	if err != nil {
		s.logger.Error("Failed to create record", slog.Any("error", err))
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.seq++
	s.records[id] = &record{
		draft:   usecase.Draft{ID: id, Name: name, Kind: s.kind, Description: desc},
		payload: payload,
		seq:     s.seq,
	}
	s.logger.Info("Created record", slog.String("id", id), slog.String("name", name))
	return id, nil
}

func (s *Store) Update(ctx context.Context, id string, payload any) error {
	name, desc, err := payloadHead(payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return &domain.HTTPError{StatusCode: 404, Body: fmt.Sprintf("%s %s not found", s.kind, id)}
	}
	r.draft.Name, r.draft.Description = name, desc
	r.payload = payload
	s.logger.Info("Updated record", slog.String("id", id), slog.String("name", name))
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return &domain.HTTPError{StatusCode: 404, Body: fmt.Sprintf("%s %s not found", s.kind, id)}
	}
	delete(s.records, id)
	s.logger.Info("Deleted record", slog.String("id", id))
	return nil
}

func (s *Store) UploadArtifact(ctx context.Context, id, filename string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return &domain.HTTPError{StatusCode: 404, Body: fmt.Sprintf("%s %s not found", s.kind, id)}
	}
	r.artifact = data
	s.logger.Info("Stored artifact", slog.String("id", id), slog.String("filename", filename), slog.Int("size", len(data)))
	return nil
}

// Payload returns what was last published under id.
func (s *Store) Payload(id string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, false
	}
	return r.payload, true
}

// Artifact returns the artifact uploaded for id.
func (s *Store) Artifact(id string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok || r.artifact == nil {
		return nil, false
	}
	return r.artifact, true
}

// NewStores builds a complete in-memory backend.
func NewStores(logger *slog.Logger) (usecase.Stores, *Connections) {
	conns := NewConnections(logger)
	return usecase.Stores{
		NativeAgents:    NewStore(usecase.StoreNativeAgents, logger),
		ExternalAgents:  NewStore(usecase.StoreExternalAgents, logger),
		AssistantAgents: NewStore(usecase.StoreAssistantAgents, logger),
		Tools:           NewStore(usecase.StoreTools, logger),
		Toolkits:        NewStore(usecase.StoreToolkits, logger),
		KnowledgeBases:  NewStore(usecase.StoreKnowledgeBases, logger),
		Connections:     conns,
	}, conns
}
