package memstore

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/i2y/orchestrate/internal/domain"
)

// Connections is an in-memory ConnectionStore.
type Connections struct {
	mu     sync.RWMutex
	conns  []domain.Connection
	logger *slog.Logger
}

func NewConnections(logger *slog.Logger) *Connections {
	return &Connections{logger: logger.With("component", "mem_connections")}
}

// Seed inserts connections as they are; duplicates are allowed.
func (c *Connections) Seed(conns ...domain.Connection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conns = append(c.conns, conns...)
}

func (c *Connections) GetDraftByAppID(ctx context.Context, appID string) ([]domain.Connection, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []domain.Connection
	for _, conn := range c.conns {
		if conn.AppID == appID {
			out = append(out, conn)
		}
	}
	return out, nil
}

func (c *Connections) ListConnections(ctx context.Context) ([]domain.Connection, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Connection(nil), c.conns...), nil
}

// CreateConnection rejects a second connection for the same app id with a
// 409, the way the backend does.
func (c *Connections) CreateConnection(ctx context.Context, req *domain.CreateConnection) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, conn := range c.conns {
		if conn.AppID == req.AppID {
			return "", &domain.HTTPError{StatusCode: http.StatusConflict, Body: fmt.Sprintf("connection %s already exists", req.AppID)}
		}
	}
	conn := domain.Connection{
		AppID:          req.AppID,
		ConnectionID:   uuid.NewString(),
		SecurityScheme: domain.SchemeOf(req.ConnectionType),
	}
	if req.ConnectionType.IsOAuth() {
		conn.AuthType = string(req.ConnectionType)
	}
	c.conns = append(c.conns, conn)
	c.logger.Info("Created connection", slog.String("app_id", req.AppID), slog.String("connection_id", conn.ConnectionID))
	return conn.ConnectionID, nil
}

func (c *Connections) DeleteConnection(ctx context.Context, appID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.conns[:0]
	removed := false
	for _, conn := range c.conns {
		if conn.AppID == appID {
			removed = true
			continue
		}
		kept = append(kept, conn)
	}
	c.conns = kept
	if !removed {
		return &domain.HTTPError{StatusCode: http.StatusNotFound, Body: fmt.Sprintf("connection %s not found", appID)}
	}
	c.logger.Info("Deleted connection", slog.String("app_id", appID))
	return nil
}
