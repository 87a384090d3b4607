package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/i2y/orchestrate/internal/domain"
	"github.com/i2y/orchestrate/internal/usecase"
)

func newServeTools(t *testing.T, files map[string]string) (*usecase.ServeToolsUseCase, *MockToolInvoker) {
	t.Helper()
	reader := new(MockSpecReader)
	for file, name := range files {
		reader.On("Read", file).Return([]byte(fmt.Sprintf(toolYAML, name)), domain.FormatYAML, nil)
	}
	inv := new(MockToolInvoker)
	invoke := usecase.NewInvokeToolUseCase(reader, inv, usecase.ExecutionContext{}, logger)
	return usecase.NewServeToolsUseCase(invoke, usecase.InvokeOptions{Server: "http://localhost:8080"}, logger), inv
}

func TestServeToolsUseCase_Execute(t *testing.T) {
	uc, _ := newServeTools(t, map[string]string{"b.yaml": "zeta", "a.yaml": "alpha"})
	require.NoError(t, uc.Load([]string{"b.yaml", "a.yaml"}))

	tools, err := uc.Execute(context.Background())

	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "alpha", tools[0].Name)
	assert.Equal(t, "zeta", tools[1].Name)
}

func TestServeToolsUseCase_Load_Duplicate(t *testing.T) {
	uc, _ := newServeTools(t, map[string]string{"a.yaml": "same", "b.yaml": "same"})

	err := uc.Load([]string{"a.yaml", "b.yaml"})

	assert.EqualError(t, err, "name: tool 'same' is defined more than once")
}

func TestServeToolsUseCase_Call(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		tool      string
		args      map[string]any
		mockSetup func(inv *MockToolInvoker)
		want      any
		wantErr   error
	}{
		{
			name: "Success",
			tool: "get_weather",
			args: map[string]any{"city": "Paris"},
			mockSetup: func(inv *MockToolInvoker) {
				inv.On("Invoke", mock.Anything, mock.MatchedBy(func(s *domain.ToolSpec) bool { return s.Name == "get_weather" }),
					"http://localhost:8080", (*domain.Credentials)(nil), map[string]any{"city": "Paris"}).
					Return("sunny", nil).Once()
			},
			want: "sunny",
		},
		{
			name:      "Failure - unknown tool",
			tool:      "ghost",
			mockSetup: func(inv *MockToolInvoker) {},
			wantErr:   usecase.ErrToolNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, inv := newServeTools(t, map[string]string{"weather.yaml": "get_weather"})
			require.NoError(t, uc.Load([]string{"weather.yaml"}))
			tt.mockSetup(inv)

			got, err := uc.Call(ctx, tt.tool, tt.args)

			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			inv.AssertExpectations(t)
		})
	}
}
