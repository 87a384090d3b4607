package orchestrate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/i2y/orchestrate/internal/domain"
	"github.com/i2y/orchestrate/internal/usecase"
)

// record is the part of a backend record the CLI reads back.
type record struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type created struct {
	ID string `json:"id"`
}

// Store is one backend collection.
type Store struct {
	c            *Client
	kind         usecase.StoreKind
	path         string
	updateMethod string
	logger       *slog.Logger
}

func newStore(c *Client, kind usecase.StoreKind, path, updateMethod string) *Store {
	return &Store{
		c:            c,
		kind:         kind,
		path:         path,
		updateMethod: updateMethod,
		logger:       c.logger.With("store", string(kind)),
	}
}

var agentPaths = map[domain.AgentKind]string{
	domain.AgentKindNative:    "/orchestrate/agents",
	domain.AgentKindExternal:  "/orchestrate/agents/external-chat",
	domain.AgentKindAssistant: "/orchestrate/assistants",
}

// NewAgentStore returns the collection holding agents of the given kind.
func NewAgentStore(c *Client, kind domain.AgentKind) *Store {
	return newStore(c, usecase.StoreKind(kind), agentPaths[kind], http.MethodPatch)
}

// NewToolStore returns the tool collection. Tools are replaced with PUT.
func NewToolStore(c *Client) *Store {
	return newStore(c, usecase.StoreTools, "/tools", http.MethodPut)
}

func NewToolkitStore(c *Client) *Store {
	return newStore(c, usecase.StoreToolkits, "/orchestrate/toolkits", http.MethodPatch)
}

func (s *Store) Kind() usecase.StoreKind { return s.kind }

func (s *Store) drafts(records []record) []usecase.Draft {
	drafts := make([]usecase.Draft, 0, len(records))
	for _, r := range records {
		drafts = append(drafts, usecase.Draft{ID: r.ID, Name: r.Name, Kind: s.kind, Description: r.Description})
	}
	return drafts
}

func (s *Store) List(ctx context.Context) ([]usecase.Draft, error) {
	var records []record
	if err := s.c.get(ctx, s.path, nil, &records); err != nil {
		return nil, fmt.Errorf("failed to list %ss: %w", s.kind, err)
	}
	return s.drafts(records), nil
}

func (s *Store) GetDraftsByNames(ctx context.Context, names []string) ([]usecase.Draft, error) {
	return lookupByNames(ctx, s.c, s.path, names, s.drafts)
}

func lookupByNames(ctx context.Context, c *Client, path string, names []string, conv func([]record) []usecase.Draft) ([]usecase.Draft, error) {
	if len(names) == 0 {
		return nil, nil
	}
	query := url.Values{}
	for _, n := range names {
		query.Add("names", n)
	}
	var records []record
	if err := c.get(ctx, path, query, &records); err != nil {
		return nil, fmt.Errorf("failed to look up %v: %w", names, err)
	}
	return conv(records), nil
}

func (s *Store) Create(ctx context.Context, payload any) (string, error) {
	var out created
	if err := s.c.post(ctx, s.path, payload, &out); err != nil {
		return "", err
	}
	s.logger.Debug("Created record", slog.String("id", out.ID))
	return out.ID, nil
}

func (s *Store) Update(ctx context.Context, id string, payload any) error {
	target := s.path + "/" + url.PathEscape(id)
	if s.updateMethod == http.MethodPut {
		return s.c.put(ctx, target, payload, nil)
	}
	return s.c.patch(ctx, target, payload, nil)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.c.delete(ctx, s.path+"/"+url.PathEscape(id))
}

// UploadArtifact sends a zip artifact as the "file" part of a multipart request.
func (s *Store) UploadArtifact(ctx context.Context, id, filename string, data []byte) error {
	target := s.path + "/" + url.PathEscape(id) + "/upload"
	err := s.c.multipart(ctx, http.MethodPost, target, nil, []filePart{{field: "file", filename: filename, data: data}}, nil)
	if err != nil {
		return fmt.Errorf("failed to upload %s for %s %s: %w", filename, s.kind, id, err)
	}
	s.logger.Info("Uploaded artifact", slog.String("id", id), slog.String("filename", filename), slog.Int("size", len(data)))
	return nil
}

const knowledgeBasePath = "/api/v1/orchestrate/knowledge-bases"

// KnowledgeBaseStore is the knowledge base collection. Create and update
// carry the spec as a JSON form field of a multipart request.
type KnowledgeBaseStore struct {
	c      *Client
	logger *slog.Logger
}

func NewKnowledgeBaseStore(c *Client) *KnowledgeBaseStore {
	return &KnowledgeBaseStore{c: c, logger: c.logger.With("store", string(usecase.StoreKnowledgeBases))}
}

func (k *KnowledgeBaseStore) Kind() usecase.StoreKind { return usecase.StoreKnowledgeBases }

func (k *KnowledgeBaseStore) drafts(records []record) []usecase.Draft {
	drafts := make([]usecase.Draft, 0, len(records))
	for _, r := range records {
		drafts = append(drafts, usecase.Draft{ID: r.ID, Name: r.Name, Kind: usecase.StoreKnowledgeBases, Description: r.Description})
	}
	return drafts
}

func (k *KnowledgeBaseStore) List(ctx context.Context) ([]usecase.Draft, error) {
	var records []record
	if err := k.c.get(ctx, knowledgeBasePath, nil, &records); err != nil {
		return nil, fmt.Errorf("failed to list knowledge bases: %w", err)
	}
	return k.drafts(records), nil
}

func (k *KnowledgeBaseStore) GetDraftsByNames(ctx context.Context, names []string) ([]usecase.Draft, error) {
	return lookupByNames(ctx, k.c, knowledgeBasePath, names, k.drafts)
}

func (k *KnowledgeBaseStore) form(payload any) (map[string]string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal knowledge base: %w", err)
	}
	return map[string]string{"knowledge_base": string(data)}, nil
}

func (k *KnowledgeBaseStore) Create(ctx context.Context, payload any) (string, error) {
	fields, err := k.form(payload)
	if err != nil {
		return "", err
	}
	var out created
	if err := k.c.multipart(ctx, http.MethodPost, knowledgeBasePath+"/documents", fields, nil, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (k *KnowledgeBaseStore) Update(ctx context.Context, id string, payload any) error {
	fields, err := k.form(payload)
	if err != nil {
		return err
	}
	return k.c.multipart(ctx, http.MethodPatch, knowledgeBasePath+"/"+url.PathEscape(id)+"/documents", fields, nil, nil)
}

func (k *KnowledgeBaseStore) Delete(ctx context.Context, id string) error {
	return k.c.delete(ctx, knowledgeBasePath+"/"+url.PathEscape(id))
}

// NewStores wires every backend collection to one client.
func NewStores(c *Client) usecase.Stores {
	return usecase.Stores{
		NativeAgents:    NewAgentStore(c, domain.AgentKindNative),
		ExternalAgents:  NewAgentStore(c, domain.AgentKindExternal),
		AssistantAgents: NewAgentStore(c, domain.AgentKindAssistant),
		Tools:           NewToolStore(c),
		Toolkits:        NewToolkitStore(c),
		KnowledgeBases:  NewKnowledgeBaseStore(c),
		Connections:     NewConnectionStore(c),
	}
}
