package orchestrate

import (
	"context"
	"fmt"
	"net/url"

	"github.com/i2y/orchestrate/internal/domain"
)

const connectionsPath = "/api/v1/connections/applications"

// ConnectionStore manages application connections.
type ConnectionStore struct {
	c *Client
}

func NewConnectionStore(c *Client) *ConnectionStore {
	return &ConnectionStore{c: c}
}

// GetDraftByAppID returns every connection registered under appID.
func (s *ConnectionStore) GetDraftByAppID(ctx context.Context, appID string) ([]domain.Connection, error) {
	var conns []domain.Connection
	if err := s.c.get(ctx, connectionsPath, url.Values{"app_id": {appID}}, &conns); err != nil {
		return nil, fmt.Errorf("failed to look up connection %s: %w", appID, err)
	}
	return conns, nil
}

func (s *ConnectionStore) ListConnections(ctx context.Context) ([]domain.Connection, error) {
	var conns []domain.Connection
	if err := s.c.get(ctx, connectionsPath, nil, &conns); err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	return conns, nil
}

func (s *ConnectionStore) CreateConnection(ctx context.Context, req *domain.CreateConnection) (string, error) {
	var out struct {
		ConnectionID string `json:"connection_id"`
	}
	if err := s.c.post(ctx, connectionsPath, req, &out); err != nil {
		return "", err
	}
	return out.ConnectionID, nil
}

func (s *ConnectionStore) DeleteConnection(ctx context.Context, appID string) error {
	return s.c.delete(ctx, connectionsPath+"/"+url.PathEscape(appID))
}
