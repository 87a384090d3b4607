package domain

import (
	"strings"
)

// AgentKind discriminates the agent variants.
type AgentKind string

const (
	AgentKindNative    AgentKind = "native"
	AgentKindExternal  AgentKind = "external"
	AgentKindAssistant AgentKind = "assistant"
)

func ParseAgentKind(s string) (AgentKind, error) {
	switch k := AgentKind(strings.ToLower(strings.TrimSpace(s))); k {
	case AgentKindNative, AgentKindExternal, AgentKindAssistant:
		return k, nil
	case "":
		return AgentKindNative, nil
	}
	return "", newValidationError("kind", "invalid agent kind %q, expected one of native, external, assistant", s)
}

// DefaultLLM is used by native agents that do not name a model.
const DefaultLLM = "watsonx/meta-llama/llama-3-1-70b-instruct"

type AgentStyle string

const (
	AgentStyleDefault AgentStyle = "default"
	AgentStyleReact   AgentStyle = "react"
)

type ExternalAuthScheme string

const (
	AuthSchemeBearerToken ExternalAuthScheme = "BEARER_TOKEN"
	AuthSchemeAPIKey      ExternalAuthScheme = "API_KEY"
	AuthSchemeNone        ExternalAuthScheme = "NONE"
)

type AgentProvider string

const (
	ProviderWXAI       AgentProvider = "wx.ai"
	ProviderExtChat    AgentProvider = "external_chat"
	ProviderSalesforce AgentProvider = "salesforce"
	ProviderWatsonx    AgentProvider = "watsonx"
)

type AssistantAuthType string

const (
	AssistantAuthICPIAM      AssistantAuthType = "ICP_IAM"
	AssistantAuthCloudIAM    AssistantAuthType = "IBM_CLOUD_IAM"
	AssistantAuthMCSP        AssistantAuthType = "MCSP"
	AssistantAuthBearerToken AssistantAuthType = "BEARER_TOKEN"
	AssistantAuthHidden      AssistantAuthType = "<hidden>"
)

// Agent is the closed set of agent variants. Only this package can add
// implementations; callers branch on the variant through Accept.
type Agent interface {
	AgentName() string
	AgentKind() AgentKind
	Accept(AgentVisitor) error
	Validate() error
	isAgent()
}

// AgentVisitor has one method per agent variant.
type AgentVisitor interface {
	VisitNative(*NativeAgent) error
	VisitExternal(*ExternalAgent) error
	VisitAssistant(*AssistantAgent) error
}

// BaseAgent holds the fields every variant shares.
type BaseAgent struct {
	SpecVersion string    `json:"spec_version,omitempty" yaml:"spec_version,omitempty"`
	Kind        AgentKind `json:"kind" yaml:"kind"`
	ID          string    `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
}

func (b *BaseAgent) AgentName() string    { return b.Name }
func (b *BaseAgent) AgentKind() AgentKind { return b.Kind }
func (*BaseAgent) isAgent()               {}

func (b *BaseAgent) validateBase(want AgentKind) error {
	if b.Kind != want {
		return newValidationError("kind", "the specified kind '%s' cannot be used to create a %s agent", b.Kind, want)
	}
	if err := notBlank("name", b.Name, true); err != nil {
		return err
	}
	if err := notBlank("description", b.Description, true); err != nil {
		return err
	}
	return notBlank("id", b.ID, false)
}

// NativeAgent is managed by the orchestrator and references tools,
// collaborators and knowledge bases by name.
type NativeAgent struct {
	BaseAgent     `yaml:",inline"`
	LLM           string     `json:"llm" yaml:"llm"`
	Style         AgentStyle `json:"style" yaml:"style"`
	Instructions  string     `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	Collaborators []string   `json:"collaborators" yaml:"collaborators"`
	Tools         []string   `json:"tools" yaml:"tools"`
	KnowledgeBase []string   `json:"knowledge_base" yaml:"knowledge_base"`
	Hidden        bool       `json:"hidden" yaml:"hidden"`
}

// NewNativeAgent fills defaults and validates.
func NewNativeAgent(a NativeAgent) (*NativeAgent, error) {
	a.applyDefaults()
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

func (a *NativeAgent) applyDefaults() {
	if a.Kind == "" {
		a.Kind = AgentKindNative
	}
	if a.LLM == "" {
		a.LLM = DefaultLLM
	}
	if a.Style == "" {
		a.Style = AgentStyleDefault
	}
	if a.Collaborators == nil {
		a.Collaborators = []string{}
	}
	if a.Tools == nil {
		a.Tools = []string{}
	}
	if a.KnowledgeBase == nil {
		a.KnowledgeBase = []string{}
	}
}

func (a *NativeAgent) Validate() error {
	if err := a.validateBase(AgentKindNative); err != nil {
		return err
	}
	if a.Style != AgentStyleDefault && a.Style != AgentStyleReact {
		return newValidationError("style", "invalid style %q, expected default or react", a.Style)
	}
	if err := notBlank("instructions", a.Instructions, false); err != nil {
		return err
	}
	for _, ref := range []struct {
		field string
		names []string
	}{
		{"collaborators", a.Collaborators},
		{"tools", a.Tools},
		{"knowledge_base", a.KnowledgeBase},
	} {
		for _, n := range ref.names {
			if err := notBlank(ref.field, n, true); err != nil {
				return err
			}
		}
	}
	for _, c := range a.Collaborators {
		if c == a.Name {
			return newValidationError("collaborators", "Circular reference detected. The agent '%s' cannot contain itself as a collaborator", a.Name)
		}
	}
	return nil
}

func (a *NativeAgent) Accept(v AgentVisitor) error { return v.VisitNative(a) }

// ExternalAgentConfig is forwarded unchanged to the backend.
type ExternalAgentConfig struct {
	Hidden    bool `json:"hidden" yaml:"hidden"`
	EnableCoT bool `json:"enable_cot" yaml:"enable_cot"`
}

// ExternalAgent proxies a chat endpoint hosted elsewhere.
type ExternalAgent struct {
	BaseAgent    `yaml:",inline"`
	Title        string              `json:"title" yaml:"title"`
	Tags         []string            `json:"tags,omitempty" yaml:"tags,omitempty"`
	APIURL       string              `json:"api_url" yaml:"api_url"`
	AuthScheme   ExternalAuthScheme  `json:"auth_scheme" yaml:"auth_scheme"`
	AuthConfig   map[string]any      `json:"auth_config" yaml:"auth_config"`
	Provider     AgentProvider       `json:"provider" yaml:"provider"`
	ChatParams   map[string]any      `json:"chat_params,omitempty" yaml:"chat_params,omitempty"`
	Config       ExternalAgentConfig `json:"config" yaml:"config"`
	Nickname     string              `json:"nickname,omitempty" yaml:"nickname,omitempty"`
	AppID        string              `json:"app_id,omitempty" yaml:"app_id,omitempty"`
	ConnectionID string              `json:"connection_id,omitempty" yaml:"connection_id,omitempty"`
}

func NewExternalAgent(a ExternalAgent) (*ExternalAgent, error) {
	a.applyDefaults()
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

func (a *ExternalAgent) applyDefaults() {
	if a.Kind == "" {
		a.Kind = AgentKindExternal
	}
	if a.AuthScheme == "" {
		a.AuthScheme = AuthSchemeNone
	}
	if a.AuthConfig == nil {
		a.AuthConfig = map[string]any{}
	}
	if a.Provider == "" {
		a.Provider = ProviderExtChat
	}
}

func (a *ExternalAgent) Validate() error {
	if err := a.validateBase(AgentKindExternal); err != nil {
		return err
	}
	for _, f := range []struct {
		name, value string
		required    bool
	}{
		{"title", a.Title, true},
		{"api_url", a.APIURL, true},
		{"nickname", a.Nickname, false},
		{"app_id", a.AppID, false},
	} {
		if err := notBlank(f.name, f.value, f.required); err != nil {
			return err
		}
	}
	for _, t := range a.Tags {
		if err := notBlank("tags", t, true); err != nil {
			return err
		}
	}
	switch a.AuthScheme {
	case AuthSchemeBearerToken, AuthSchemeAPIKey, AuthSchemeNone:
	default:
		return newValidationError("auth_scheme", "invalid auth scheme %q", a.AuthScheme)
	}
	switch a.Provider {
	case ProviderWXAI, ProviderExtChat, ProviderSalesforce, ProviderWatsonx:
	default:
		return newValidationError("provider", "invalid provider %q", a.Provider)
	}
	return nil
}

func (a *ExternalAgent) Accept(v AgentVisitor) error { return v.VisitExternal(a) }

// AssistantAgentConfig describes how to reach a watsonx Assistant instance.
type AssistantAgentConfig struct {
	APIVersion         string            `json:"api_version,omitempty" yaml:"api_version,omitempty"`
	AssistantID        string            `json:"assistant_id,omitempty" yaml:"assistant_id,omitempty"`
	CRN                string            `json:"crn,omitempty" yaml:"crn,omitempty"`
	ServiceInstanceURL string            `json:"service_instance_url,omitempty" yaml:"service_instance_url,omitempty"`
	InstanceURL        string            `json:"instance_url,omitempty" yaml:"instance_url,omitempty"`
	EnvironmentID      string            `json:"environment_id,omitempty" yaml:"environment_id,omitempty"`
	AuthType           AssistantAuthType `json:"auth_type" yaml:"auth_type"`
	ConnectionID       string            `json:"connection_id,omitempty" yaml:"connection_id,omitempty"`
	APIKey             string            `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	AuthorizationURL   string            `json:"authorization_url,omitempty" yaml:"authorization_url,omitempty"`
}

// AssistantAgent wraps an existing watsonx Assistant.
type AssistantAgent struct {
	BaseAgent    `yaml:",inline"`
	Title        string               `json:"title" yaml:"title"`
	Tags         []string             `json:"tags,omitempty" yaml:"tags,omitempty"`
	Config       AssistantAgentConfig `json:"config" yaml:"config"`
	Nickname     string               `json:"nickname,omitempty" yaml:"nickname,omitempty"`
	AppID        string               `json:"app_id,omitempty" yaml:"app_id,omitempty"`
	ConnectionID string               `json:"connection_id,omitempty" yaml:"connection_id,omitempty"`
}

func NewAssistantAgent(a AssistantAgent) (*AssistantAgent, error) {
	a.applyDefaults()
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

func (a *AssistantAgent) applyDefaults() {
	if a.Kind == "" {
		a.Kind = AgentKindAssistant
	}
	if a.Config.AuthType == "" {
		a.Config.AuthType = AssistantAuthMCSP
	}
	// instance_url is accepted as an alias on input only.
	if a.Config.ServiceInstanceURL == "" {
		a.Config.ServiceInstanceURL = a.Config.InstanceURL
	}
	a.Config.InstanceURL = ""
}

func (a *AssistantAgent) Validate() error {
	if err := a.validateBase(AgentKindAssistant); err != nil {
		return err
	}
	for _, f := range []struct {
		name, value string
		required    bool
	}{
		{"title", a.Title, true},
		{"nickname", a.Nickname, false},
		{"app_id", a.AppID, false},
		{"config.api_version", a.Config.APIVersion, false},
		{"config.assistant_id", a.Config.AssistantID, false},
		{"config.crn", a.Config.CRN, false},
		{"config.environment_id", a.Config.EnvironmentID, false},
	} {
		if err := notBlank(f.name, f.value, f.required); err != nil {
			return err
		}
	}
	for _, t := range a.Tags {
		if err := notBlank("tags", t, true); err != nil {
			return err
		}
	}
	return nil
}

func (a *AssistantAgent) Accept(v AgentVisitor) error { return v.VisitAssistant(a) }

// ParseAgent decodes a spec document into the variant named by its kind field.
func ParseAgent(data []byte, format SpecFormat) (Agent, error) {
	raw, err := decodeKind(data, format)
	if err != nil {
		return nil, newValidationError("", "failed to parse agent spec: %v", err)
	}
	kind, err := ParseAgentKind(raw)
	if err != nil {
		return nil, err
	}
	switch kind {
	case AgentKindExternal:
		var a ExternalAgent
		if err := decode(data, format, &a); err != nil {
			return nil, newValidationError("", "failed to parse external agent spec: %v", err)
		}
		a.Kind = kind
		return NewExternalAgent(a)
	case AgentKindAssistant:
		var a AssistantAgent
		if err := decode(data, format, &a); err != nil {
			return nil, newValidationError("", "failed to parse assistant agent spec: %v", err)
		}
		a.Kind = kind
		return NewAssistantAgent(a)
	default:
		var a NativeAgent
		if err := decode(data, format, &a); err != nil {
			return nil, newValidationError("", "failed to parse native agent spec: %v", err)
		}
		a.Kind = kind
		return NewNativeAgent(a)
	}
}

func notBlank(field, value string, required bool) error {
	if value == "" {
		if required {
			return newValidationError(field, "%s is required", field)
		}
		return nil
	}
	if strings.TrimSpace(value) == "" {
		return newValidationError(field, "%s cannot be empty or just whitespace", field)
	}
	return nil
}
