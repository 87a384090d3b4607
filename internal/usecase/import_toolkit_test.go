package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/i2y/orchestrate/internal/domain"
	"github.com/i2y/orchestrate/internal/usecase"
)

func TestImportToolkitUseCase_Import(t *testing.T) {
	ctx := context.Background()
	base := usecase.ImportToolkitParams{
		Kind:        domain.ToolkitKindMCP,
		Name:        "files",
		Description: "File tools",
		Command:     `["npx", "-y", "@modelcontextprotocol/server-filesystem", "/data"]`,
	}

	tests := []struct {
		name      string
		params    func() usecase.ImportToolkitParams
		mockSetup func(b *backend, lister *MockMCPToolLister, packager *MockArtifactPackager)
		wantErr   string
		check     func(t *testing.T, b *backend, res *usecase.PublishResult)
	}{
		{
			name:   "Success - tools discovered over MCP",
			params: func() usecase.ImportToolkitParams { return base },
			mockSetup: func(b *backend, lister *MockMCPToolLister, packager *MockArtifactPackager) {
				lister.On("ListToolNames", mock.Anything, domain.MCPServer{
					Command: "npx",
					Args:    []string{"-y", "@modelcontextprotocol/server-filesystem", "/data"},
				}).Return([]string{"read_file", "write_file"}, nil).Once()
			},
			check: func(t *testing.T, b *backend, res *usecase.PublishResult) {
				payload, ok := b.toolkits.Payload(res.ID)
				require.True(t, ok)
				spec := payload.(*domain.ToolkitSpec)
				assert.Equal(t, "files", spec.MCP.Source)
				assert.Equal(t, "npx", spec.MCP.Command)
				assert.Equal(t, []string{"read_file", "write_file"}, spec.MCP.Tools)
			},
		},
		{
			name: "Success - explicit tools, remapped key_value connection and package upload",
			params: func() usecase.ImportToolkitParams {
				p := base
				p.Command = "python server.py"
				p.Tools = []string{"search"}
				p.AppIDs = []string{"my-app=local_kv"}
				p.PackageRoot = "./server"
				return p
			},
			mockSetup: func(b *backend, lister *MockMCPToolLister, packager *MockArtifactPackager) {
				b.conns.Seed(domain.Connection{AppID: "local_kv", ConnectionID: "conn-kv", SecurityScheme: domain.SchemeKeyValue})
				packager.On("Directory", "./server").Return("server.zip", []byte("PK"), nil).Once()
			},
			check: func(t *testing.T, b *backend, res *usecase.PublishResult) {
				payload, _ := b.toolkits.Payload(res.ID)
				spec := payload.(*domain.ToolkitSpec)
				assert.Equal(t, []string{"server.py"}, spec.MCP.Args)
				assert.Equal(t, map[string]string{"my_app": "conn-kv"}, spec.MCP.Connections)
				art, ok := b.toolkits.Artifact(res.ID)
				require.True(t, ok)
				assert.Equal(t, []byte("PK"), art)
			},
		},
		{
			name:   "Failure - toolkit exists",
			params: func() usecase.ImportToolkitParams { return base },
			mockSetup: func(b *backend, lister *MockMCPToolLister, packager *MockArtifactPackager) {
				b.toolkits.Seed(usecase.Draft{ID: "k1", Name: "files"})
			},
			wantErr: "Existing toolkit found with name 'files'",
		},
		{
			name: "Failure - connection is not key_value",
			params: func() usecase.ImportToolkitParams {
				p := base
				p.AppIDs = []string{"gh"}
				return p
			},
			mockSetup: func(b *backend, lister *MockMCPToolLister, packager *MockArtifactPackager) {
				b.conns.Seed(domain.Connection{AppID: "gh", ConnectionID: "conn-gh", SecurityScheme: domain.SchemeBearerToken})
			},
			wantErr: "Only key_value credentials are currently supported",
		},
		{
			name: "Failure - neither command nor url",
			params: func() usecase.ImportToolkitParams {
				p := base
				p.Command = ""
				return p
			},
			mockSetup: func(b *backend, lister *MockMCPToolLister, packager *MockArtifactPackager) {},
			wantErr:   "either a command or a url is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBackend()
			lister := new(MockMCPToolLister)
			packager := new(MockArtifactPackager)
			tt.mockSetup(b, lister, packager)

			uc := usecase.NewImportToolkitUseCase(lister, packager, usecase.NewResolver(b.stores, logger), b.stores, logger)
			res, err := uc.Import(ctx, tt.params())

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, usecase.ActionCreated, res.Action)
				tt.check(t, b, res)
			}
			lister.AssertExpectations(t)
			packager.AssertExpectations(t)
		})
	}
}
