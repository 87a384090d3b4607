package usecase_test

import (
	"context"
	"log/slog"
	"os"

	"github.com/stretchr/testify/mock"

	"github.com/i2y/orchestrate/internal/adapter/outbound/memstore"
	"github.com/i2y/orchestrate/internal/domain"
	"github.com/i2y/orchestrate/internal/usecase"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

// backend is an in-memory backend with typed access to every store.
type backend struct {
	stores    usecase.Stores
	native    *memstore.Store
	external  *memstore.Store
	assistant *memstore.Store
	tools     *memstore.Store
	toolkits  *memstore.Store
	kbs       *memstore.Store
	conns     *memstore.Connections
}

func newBackend() *backend {
	stores, conns := memstore.NewStores(logger)
	return &backend{
		stores:    stores,
		native:    stores.NativeAgents.(*memstore.Store),
		external:  stores.ExternalAgents.(*memstore.Store),
		assistant: stores.AssistantAgents.(*memstore.Store),
		tools:     stores.Tools.(*memstore.Store),
		toolkits:  stores.Toolkits.(*memstore.Store),
		kbs:       stores.KnowledgeBases.(*memstore.Store),
		conns:     conns,
	}
}

// MockDraftStore is a mock implementation of the DraftStore interface.
type MockDraftStore struct {
	mock.Mock
	kind usecase.StoreKind
}

func (m *MockDraftStore) Kind() usecase.StoreKind { return m.kind }

func (m *MockDraftStore) List(ctx context.Context) ([]usecase.Draft, error) {
	args := m.Called(ctx)
	result := args.Get(0)
	if result == nil {
		return nil, args.Error(1)
	}
	return result.([]usecase.Draft), args.Error(1)
}

func (m *MockDraftStore) GetDraftsByNames(ctx context.Context, names []string) ([]usecase.Draft, error) {
	args := m.Called(ctx, names)
	result := args.Get(0)
	if result == nil {
		return nil, args.Error(1)
	}
	return result.([]usecase.Draft), args.Error(1)
}

func (m *MockDraftStore) Create(ctx context.Context, payload any) (string, error) {
	args := m.Called(ctx, payload)
	return args.String(0), args.Error(1)
}

func (m *MockDraftStore) Update(ctx context.Context, id string, payload any) error {
	return m.Called(ctx, id, payload).Error(0)
}

func (m *MockDraftStore) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// MockConnectionStore is a mock implementation of the ConnectionStore interface.
type MockConnectionStore struct {
	mock.Mock
}

func (m *MockConnectionStore) GetDraftByAppID(ctx context.Context, appID string) ([]domain.Connection, error) {
	args := m.Called(ctx, appID)
	result := args.Get(0)
	if result == nil {
		return nil, args.Error(1)
	}
	return result.([]domain.Connection), args.Error(1)
}

func (m *MockConnectionStore) ListConnections(ctx context.Context) ([]domain.Connection, error) {
	args := m.Called(ctx)
	result := args.Get(0)
	if result == nil {
		return nil, args.Error(1)
	}
	return result.([]domain.Connection), args.Error(1)
}

func (m *MockConnectionStore) CreateConnection(ctx context.Context, conn *domain.CreateConnection) (string, error) {
	args := m.Called(ctx, conn)
	return args.String(0), args.Error(1)
}

func (m *MockConnectionStore) DeleteConnection(ctx context.Context, appID string) error {
	return m.Called(ctx, appID).Error(0)
}

// MockPythonReflector is a mock implementation of the PythonReflector interface.
type MockPythonReflector struct {
	mock.Mock
}

func (m *MockPythonReflector) ReflectFile(ctx context.Context, path string) ([]domain.PythonTool, error) {
	args := m.Called(ctx, path)
	result := args.Get(0)
	if result == nil {
		return nil, args.Error(1)
	}
	return result.([]domain.PythonTool), args.Error(1)
}

// MockOpenAPISynthesizer is a mock implementation of the OpenAPISynthesizer interface.
type MockOpenAPISynthesizer struct {
	mock.Mock
}

func (m *MockOpenAPISynthesizer) SynthesizeAll(ctx context.Context, source string, permission domain.Permission) ([]*domain.ToolSpec, error) {
	args := m.Called(ctx, source, permission)
	result := args.Get(0)
	if result == nil {
		return nil, args.Error(1)
	}
	return result.([]*domain.ToolSpec), args.Error(1)
}

// MockMCPToolLister is a mock implementation of the MCPToolLister interface.
type MockMCPToolLister struct {
	mock.Mock
}

func (m *MockMCPToolLister) ListToolNames(ctx context.Context, server domain.MCPServer) ([]string, error) {
	args := m.Called(ctx, server)
	result := args.Get(0)
	if result == nil {
		return nil, args.Error(1)
	}
	return result.([]string), args.Error(1)
}

// MockArtifactPackager is a mock implementation of the ArtifactPackager interface.
type MockArtifactPackager struct {
	mock.Mock
}

func (m *MockArtifactPackager) PythonTool(file, requirementsFile string) (string, []byte, error) {
	args := m.Called(file, requirementsFile)
	data, _ := args.Get(1).([]byte)
	return args.String(0), data, args.Error(2)
}

func (m *MockArtifactPackager) Directory(root string) (string, []byte, error) {
	args := m.Called(root)
	data, _ := args.Get(1).([]byte)
	return args.String(0), data, args.Error(2)
}

// MockSpecReader is a mock implementation of the SpecReader interface.
type MockSpecReader struct {
	mock.Mock
}

func (m *MockSpecReader) Read(path string) ([]byte, domain.SpecFormat, error) {
	args := m.Called(path)
	data, _ := args.Get(0).([]byte)
	return data, args.Get(1).(domain.SpecFormat), args.Error(2)
}

// MockSpecWriter is a mock implementation of the SpecWriter interface.
type MockSpecWriter struct {
	mock.Mock
}

func (m *MockSpecWriter) Write(path string, v any) error {
	return m.Called(path, v).Error(0)
}

// MockToolInvoker is a mock implementation of the ToolInvoker interface.
type MockToolInvoker struct {
	mock.Mock
}

func (m *MockToolInvoker) Invoke(ctx context.Context, spec *domain.ToolSpec, server string, creds *domain.Credentials, params map[string]any) (any, error) {
	args := m.Called(ctx, spec, server, creds, params)
	return args.Get(0), args.Error(1)
}
