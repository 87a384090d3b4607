package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/i2y/orchestrate/internal/domain"
	"github.com/i2y/orchestrate/internal/usecase"
)

const plannerYAML = `
spec_version: v1
kind: native
name: planner
description: Plans trips
tools:
  - get_weather
collaborators:
  - booker
`

func TestImportAgentsUseCase_Import(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		seed       func(b *backend)
		data       string
		wantErr    error
		wantAction usecase.Action
	}{
		{
			name: "Success - created with resolved references",
			seed: func(b *backend) {
				b.tools.Seed(usecase.Draft{ID: "tool-1", Name: "get_weather"})
				b.external.Seed(usecase.Draft{ID: "agent-9", Name: "booker"})
			},
			data:       plannerYAML,
			wantAction: usecase.ActionCreated,
		},
		{
			name: "Success - updated in place",
			seed: func(b *backend) {
				b.tools.Seed(usecase.Draft{ID: "tool-1", Name: "get_weather"})
				b.native.Seed(usecase.Draft{ID: "agent-9", Name: "booker"}, usecase.Draft{ID: "agent-1", Name: "planner"})
			},
			data:       plannerYAML,
			wantAction: usecase.ActionUpdated,
		},
		{
			name: "Failure - unknown tool",
			seed: func(b *backend) {
				b.external.Seed(usecase.Draft{ID: "agent-9", Name: "booker"})
			},
			data:    plannerYAML,
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBackend()
			tt.seed(b)
			reader := new(MockSpecReader)
			reader.On("Read", "planner.yaml").Return([]byte(tt.data), domain.FormatYAML, nil).Once()

			uc := usecase.NewImportAgentsUseCase(reader, new(MockSpecWriter), usecase.NewResolver(b.stores, logger), b.stores, logger)
			res, err := uc.Import(ctx, "planner.yaml")

			reader.AssertExpectations(t)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAction, res.Action)
			assert.Equal(t, usecase.StoreNativeAgents, res.Kind)

			payload, ok := b.native.Payload(res.ID)
			require.True(t, ok)
			agent := payload.(*domain.NativeAgent)
			assert.Equal(t, []string{"tool-1"}, agent.Tools)
			assert.Equal(t, []string{"agent-9"}, agent.Collaborators)
		})
	}
}

func TestImportAgentsUseCase_Import_InvalidSpec(t *testing.T) {
	b := newBackend()
	reader := new(MockSpecReader)
	reader.On("Read", "bad.yaml").Return([]byte("kind: native\nname: x\n"), domain.FormatYAML, nil).Once()

	uc := usecase.NewImportAgentsUseCase(reader, new(MockSpecWriter), usecase.NewResolver(b.stores, logger), b.stores, logger)
	_, err := uc.Import(context.Background(), "bad.yaml")

	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestImportAgentsUseCase_CreateAgent(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	b.conns.Seed(domain.Connection{AppID: "sf", ConnectionID: "conn-sf", SecurityScheme: domain.SchemeBearerToken})

	agent, err := domain.NewExternalAgent(domain.ExternalAgent{
		BaseAgent: domain.BaseAgent{Name: "sf_chat", Description: "Salesforce chat"},
		Title:     "SF",
		APIURL:    "https://sf.example.com/chat",
		AppID:     "sf",
	})
	require.NoError(t, err)

	writer := new(MockSpecWriter)
	writer.On("Write", "out/sf_chat.yaml", mock.MatchedBy(func(v any) bool {
		a, ok := v.(*domain.ExternalAgent)
		return ok && a.ConnectionID == ""
	})).Return(nil).Once()

	uc := usecase.NewImportAgentsUseCase(new(MockSpecReader), writer, usecase.NewResolver(b.stores, logger), b.stores, logger)
	res, err := uc.CreateAgent(ctx, agent, "out/sf_chat.yaml")

	require.NoError(t, err)
	assert.Equal(t, usecase.StoreExternalAgents, res.Kind)
	assert.Equal(t, "conn-sf", agent.ConnectionID)
	writer.AssertExpectations(t)
}
