package memstore_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/orchestrate/internal/adapter/outbound/memstore"
	"github.com/i2y/orchestrate/internal/domain"
	"github.com/i2y/orchestrate/internal/usecase"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

type payload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func TestStore_CreateUpdateDelete(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewStore(usecase.StoreTools, logger)
	assert.Equal(t, usecase.StoreTools, store.Kind())

	id, err := store.Create(ctx, payload{Name: "get_weather", Description: "v1"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	drafts, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, usecase.Draft{ID: id, Name: "get_weather", Kind: usecase.StoreTools, Description: "v1"}, drafts[0])

	require.NoError(t, store.Update(ctx, id, payload{Name: "get_weather", Description: "v2"}))
	got, ok := store.Payload(id)
	require.True(t, ok)
	assert.Equal(t, payload{Name: "get_weather", Description: "v2"}, got)

	require.NoError(t, store.UploadArtifact(ctx, id, "get_weather.zip", []byte("zip")))
	art, ok := store.Artifact(id)
	require.True(t, ok)
	assert.Equal(t, []byte("zip"), art)

	require.NoError(t, store.Delete(ctx, id))
	drafts, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestStore_MissingRecord(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewStore(usecase.StoreToolkits, logger)

	tests := []struct {
		name string
		call func() error
	}{
		{name: "update", call: func() error { return store.Update(ctx, "nope", payload{Name: "x"}) }},
		{name: "delete", call: func() error { return store.Delete(ctx, "nope") }},
		{name: "upload", call: func() error { return store.UploadArtifact(ctx, "nope", "x.zip", nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var httpErr *domain.HTTPError
			require.True(t, errors.As(err, &httpErr))
			assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
		})
	}
}

func TestStore_CreateRejectsNamelessPayload(t *testing.T) {
	store := memstore.NewStore(usecase.StoreTools, logger)
	_, err := store.Create(context.Background(), payload{Description: "no name"})
	assert.Error(t, err)
}

func TestStore_GetDraftsByNames(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewStore(usecase.StoreNativeAgents, logger)
	store.Seed(
		usecase.Draft{ID: "1", Name: "shared_name"},
		usecase.Draft{ID: "2", Name: "shared_name"},
		usecase.Draft{ID: "3", Name: "solo"},
	)

	tests := []struct {
		name  string
		names []string
		want  []string
	}{
		{name: "duplicates are all returned", names: []string{"shared_name"}, want: []string{"1", "2"}},
		{name: "several names", names: []string{"solo", "shared_name"}, want: []string{"1", "2", "3"}},
		{name: "unknown name", names: []string{"ghost"}, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drafts, err := store.GetDraftsByNames(ctx, tt.names)
			require.NoError(t, err)
			var ids []string
			for _, d := range drafts {
				assert.Equal(t, usecase.StoreNativeAgents, d.Kind)
				ids = append(ids, d.ID)
			}
			assert.ElementsMatch(t, tt.want, ids)
		})
	}
}

func TestConnections(t *testing.T) {
	ctx := context.Background()
	conns := memstore.NewConnections(logger)

	req, err := domain.NewCreateConnection("github", domain.ConnectionBearerToken, false, map[string]string{"token": "t"})
	require.NoError(t, err)
	id, err := conns.CreateConnection(ctx, req)
	require.NoError(t, err)

	found, err := conns.GetDraftByAppID(ctx, "github")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, id, found[0].ConnectionID)
	assert.Equal(t, domain.ConnectionBearerToken, found[0].Type())

	_, err = conns.CreateConnection(ctx, req)
	var httpErr *domain.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusConflict, httpErr.StatusCode)

	oauth, err := domain.NewCreateConnection("sso", domain.ConnectionOAuthClientCreds, false,
		map[string]string{"client_id": "a", "client_secret": "b", "well_known_url": "c"})
	require.NoError(t, err)
	_, err = conns.CreateConnection(ctx, oauth)
	require.NoError(t, err)
	found, err = conns.GetDraftByAppID(ctx, "sso")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, domain.SchemeOAuth2, found[0].SecurityScheme)
	assert.Equal(t, domain.ConnectionOAuthClientCreds, found[0].Type())

	require.NoError(t, conns.DeleteConnection(ctx, "github"))
	assert.Error(t, conns.DeleteConnection(ctx, "github"))

	all, err := conns.ListConnections(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
