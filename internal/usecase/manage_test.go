package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/i2y/orchestrate/internal/domain"
	"github.com/i2y/orchestrate/internal/usecase"
)

func TestRemoveUseCase_Remove(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		seed        func(b *backend)
		kind        usecase.StoreKind
		target      string
		wantRemoved bool
		wantErr     error
	}{
		{
			name:        "single match is deleted",
			seed:        func(b *backend) { b.tools.Seed(usecase.Draft{ID: "t1", Name: "get_weather"}) },
			kind:        usecase.StoreTools,
			target:      "get_weather",
			wantRemoved: true,
		},
		{
			name:   "no match is a no-op",
			seed:   func(b *backend) {},
			kind:   usecase.StoreTools,
			target: "ghost",
		},
		{
			name: "duplicates are refused",
			seed: func(b *backend) {
				b.native.Seed(usecase.Draft{ID: "a1", Name: "shared_name"}, usecase.Draft{ID: "a2", Name: "shared_name"})
			},
			kind:    usecase.StoreNativeAgents,
			target:  "shared_name",
			wantErr: domain.ErrAmbiguous,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBackend()
			tt.seed(b)

			removed, err := usecase.NewRemoveUseCase(b.stores, logger).Remove(ctx, tt.kind, tt.target)

			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRemoved, removed)
			store, _ := b.stores.Store(tt.kind)
			left, err := store.GetDraftsByNames(ctx, []string{tt.target})
			require.NoError(t, err)
			assert.Empty(t, left)
		})
	}
}

func TestListUseCase_List(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	b.native.Seed(usecase.Draft{ID: "1", Name: "weather_agent"}, usecase.Draft{ID: "2", Name: "billing"})
	b.external.Seed(usecase.Draft{ID: "3", Name: "weather_bot"})

	tests := []struct {
		name      string
		filter    string
		kinds     []usecase.StoreKind
		wantNames []string
		wantErr   bool
	}{
		{
			name:      "all agents sorted by name",
			kinds:     []usecase.StoreKind{usecase.StoreNativeAgents, usecase.StoreExternalAgents},
			wantNames: []string{"billing", "weather_agent", "weather_bot"},
		},
		{
			name:      "glob filter",
			filter:    "weather_*",
			kinds:     []usecase.StoreKind{usecase.StoreNativeAgents, usecase.StoreExternalAgents},
			wantNames: []string{"weather_agent", "weather_bot"},
		},
		{
			name:    "invalid glob",
			filter:  "[",
			kinds:   []usecase.StoreKind{usecase.StoreNativeAgents},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drafts, err := usecase.NewListUseCase(b.stores, logger).List(ctx, tt.filter, tt.kinds...)
			if tt.wantErr {
				var perr *domain.ParameterError
				assert.True(t, errors.As(err, &perr))
				return
			}
			require.NoError(t, err)
			var names []string
			for _, d := range drafts {
				names = append(names, d.Name)
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestConnectionsUseCase_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		params    usecase.CreateConnectionParams
		mockSetup func(store *MockConnectionStore)
		wantID    string
		wantErr   string
	}{
		{
			name:   "Success",
			params: usecase.CreateConnectionParams{AppID: "gh", Type: domain.ConnectionBearerToken, Fields: map[string]string{"token": "t"}},
			mockSetup: func(store *MockConnectionStore) {
				store.On("CreateConnection", mock.Anything, mock.AnythingOfType("*domain.CreateConnection")).Return("conn-1", nil).Once()
			},
			wantID: "conn-1",
		},
		{
			name:   "Failure - conflict is rewritten",
			params: usecase.CreateConnectionParams{AppID: "gh", Type: domain.ConnectionBearerToken, Fields: map[string]string{"token": "t"}},
			mockSetup: func(store *MockConnectionStore) {
				store.On("CreateConnection", mock.Anything, mock.Anything).
					Return("", &domain.HTTPError{StatusCode: http.StatusConflict, Body: "{}"}).Once()
			},
			wantErr: "app_id: A connection with the app-id 'gh' already exists",
		},
		{
			name:      "Failure - missing credential field",
			params:    usecase.CreateConnectionParams{AppID: "gh", Type: domain.ConnectionBasicAuth, Fields: map[string]string{"username": "u"}},
			mockSetup: func(store *MockConnectionStore) {},
			wantErr:   "missing password for connection type basic_auth",
		},
		{
			name:   "Failure - other backend error",
			params: usecase.CreateConnectionParams{AppID: "gh", Type: domain.ConnectionKeyValue},
			mockSetup: func(store *MockConnectionStore) {
				store.On("CreateConnection", mock.Anything, mock.Anything).Return("", errors.New("boom")).Once()
			},
			wantErr: "failed to create connection 'gh': boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockConnectionStore)
			tt.mockSetup(store)

			id, err := usecase.NewConnectionsUseCase(store, logger).Create(ctx, tt.params)

			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, id)
			}
			store.AssertExpectations(t)
		})
	}
}

func TestConnectionsUseCase_Remove(t *testing.T) {
	store := new(MockConnectionStore)
	store.On("DeleteConnection", mock.Anything, "gh").Return(nil).Once()
	store.On("DeleteConnection", mock.Anything, "ghost").Return(&domain.HTTPError{StatusCode: http.StatusNotFound}).Once()

	uc := usecase.NewConnectionsUseCase(store, logger)
	assert.NoError(t, uc.Remove(context.Background(), "gh"))
	assert.Error(t, uc.Remove(context.Background(), "ghost"))
	store.AssertExpectations(t)
}
