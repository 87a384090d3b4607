package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/i2y/orchestrate/internal/domain"
)

// CreateConnectionParams describes an application connection.
type CreateConnectionParams struct {
	AppID  string
	Type   domain.ConnectionType
	Shared bool
	Fields map[string]string
}

// ConnectionsUseCase manages application connections.
type ConnectionsUseCase struct {
	store  ConnectionStore
	logger *slog.Logger
}

func NewConnectionsUseCase(store ConnectionStore, logger *slog.Logger) *ConnectionsUseCase {
	return &ConnectionsUseCase{store: store, logger: logger.With("usecase", "Connections")}
}

// Create registers a connection and returns its id.
func (uc *ConnectionsUseCase) Create(ctx context.Context, p CreateConnectionParams) (string, error) {
	log := uc.logger.With(slog.String("app_id", p.AppID), slog.String("type", string(p.Type)))

	req, err := domain.NewCreateConnection(p.AppID, p.Type, p.Shared, p.Fields)
	if err != nil {
		return "", err
	}
	id, err := uc.store.CreateConnection(ctx, req)
	if err != nil {
		var httpErr *domain.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusConflict {
			log.Error("Connection already exists")
			return "", &domain.ValidationError{Field: "app_id", Message: fmt.Sprintf("A connection with the app-id '%s' already exists", p.AppID)}
		}
		log.Error("Failed to create connection", slog.Any("error", err))
		return "", fmt.Errorf("failed to create connection '%s': %w", p.AppID, err)
	}
	log.Info("Created connection", slog.String("connection_id", id))
	return id, nil
}

func (uc *ConnectionsUseCase) Remove(ctx context.Context, appID string) error {
	if err := uc.store.DeleteConnection(ctx, appID); err != nil {
		uc.logger.Error("Failed to remove connection", slog.String("app_id", appID), slog.Any("error", err))
		return fmt.Errorf("failed to remove connection '%s': %w", appID, err)
	}
	uc.logger.Info("Removed connection", slog.String("app_id", appID))
	return nil
}

func (uc *ConnectionsUseCase) List(ctx context.Context) ([]domain.Connection, error) {
	return uc.store.ListConnections(ctx)
}
