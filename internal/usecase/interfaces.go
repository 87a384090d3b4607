package usecase

import (
	"context"
	"errors"

	"github.com/i2y/orchestrate/internal/domain"
)

// Standard errors returned by use cases and adapters.
var (
	ErrToolNotFound = errors.New("tool not found")
)

// --- Backend stores ---

// StoreKind names a backend collection. Agent stores use the agent kind.
type StoreKind string

const (
	StoreNativeAgents    StoreKind = StoreKind(domain.AgentKindNative)
	StoreExternalAgents  StoreKind = StoreKind(domain.AgentKindExternal)
	StoreAssistantAgents StoreKind = StoreKind(domain.AgentKindAssistant)
	StoreTools           StoreKind = "tool"
	StoreToolkits        StoreKind = "toolkit"
	StoreKnowledgeBases  StoreKind = "knowledge_base"
)

// ParseStoreKind maps a CLI resource name to its store.
func ParseStoreKind(s string) (StoreKind, error) {
	switch k := StoreKind(s); k {
	case StoreNativeAgents, StoreExternalAgents, StoreAssistantAgents, StoreTools, StoreToolkits, StoreKnowledgeBases:
		return k, nil
	}
	return "", &domain.ParameterError{Message: "unknown resource kind: " + s}
}

// Draft is a backend record as returned by name lookups.
type Draft struct {
	ID          string
	Name        string
	Kind        StoreKind
	Description string
}

// DraftStore is a backend collection whose records are addressed by name.
// Implementations live in the orchestrate REST adapter and in memstore.
type DraftStore interface {
	Kind() StoreKind
	List(ctx context.Context) ([]Draft, error)
	// GetDraftsByNames returns every record whose name is in names. Several
	// records may share a name; callers decide what that means.
	GetDraftsByNames(ctx context.Context, names []string) ([]Draft, error)
	// Create returns the id assigned by the backend.
	Create(ctx context.Context, payload any) (string, error)
	Update(ctx context.Context, id string, payload any) error
	Delete(ctx context.Context, id string) error
}

// ArtifactStore is a DraftStore that also accepts a zip artifact for a record.
type ArtifactStore interface {
	DraftStore
	UploadArtifact(ctx context.Context, id, filename string, data []byte) error
}

// ConnectionStore manages application connections, keyed by app id.
type ConnectionStore interface {
	GetDraftByAppID(ctx context.Context, appID string) ([]domain.Connection, error)
	ListConnections(ctx context.Context) ([]domain.Connection, error)
	CreateConnection(ctx context.Context, conn *domain.CreateConnection) (string, error)
	DeleteConnection(ctx context.Context, appID string) error
}

// Stores is the full set of backend collections, built once at the
// composition root.
type Stores struct {
	NativeAgents    DraftStore
	ExternalAgents  DraftStore
	AssistantAgents DraftStore
	Tools           ArtifactStore
	Toolkits        ArtifactStore
	KnowledgeBases  DraftStore
	Connections     ConnectionStore
}

// Store returns the collection of the given kind.
func (s Stores) Store(kind StoreKind) (DraftStore, error) {
	var store DraftStore
	switch kind {
	case StoreNativeAgents:
		store = s.NativeAgents
	case StoreExternalAgents:
		store = s.ExternalAgents
	case StoreAssistantAgents:
		store = s.AssistantAgents
	case StoreTools:
		store = s.Tools
	case StoreToolkits:
		store = s.Toolkits
	case StoreKnowledgeBases:
		store = s.KnowledgeBases
	}
	if store == nil {
		return nil, &domain.ParameterError{Message: "no store configured for " + string(kind)}
	}
	return store, nil
}

// Agents returns the three agent stores. Agent names are unique across all of them.
func (s Stores) Agents() []DraftStore {
	return []DraftStore{s.NativeAgents, s.ExternalAgents, s.AssistantAgents}
}

// --- Tool sources ---

// PythonReflector extracts decorated tools from a Python source file.
type PythonReflector interface {
	ReflectFile(ctx context.Context, path string) ([]domain.PythonTool, error)
}

// OpenAPISynthesizer turns every operation of an OpenAPI document into a tool.
type OpenAPISynthesizer interface {
	SynthesizeAll(ctx context.Context, source string, permission domain.Permission) ([]*domain.ToolSpec, error)
}

// MCPToolLister lists the tools an MCP server exposes.
type MCPToolLister interface {
	ListToolNames(ctx context.Context, server domain.MCPServer) ([]string, error)
}

// ArtifactPackager builds the zip artifacts uploaded alongside tools and toolkits.
type ArtifactPackager interface {
	// PythonTool zips a tool module and, when given, its requirements file.
	PythonTool(file, requirementsFile string) (filename string, data []byte, err error)
	// Directory zips a directory tree, or returns an existing zip as is.
	Directory(root string) (filename string, data []byte, err error)
}

// SpecReader loads spec files. The format comes from the extension.
type SpecReader interface {
	Read(path string) ([]byte, domain.SpecFormat, error)
}

// SpecWriter saves spec values. The format comes from the extension.
type SpecWriter interface {
	Write(path string, v any) error
}

// --- Tool invocation ---

// ToolInvoker executes a tool from this process.
type ToolInvoker interface {
	Invoke(ctx context.Context, spec *domain.ToolSpec, server string, creds *domain.Credentials, args map[string]any) (any, error)
}

// ExecutionContext is the explicit execution environment, passed in at the
// composition root rather than read from globals.
type ExecutionContext struct {
	// Environ holds the process environment in os.Environ form, used to
	// resolve connection credentials for local invocation.
	Environ []string
}
