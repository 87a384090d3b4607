package domain

import (
	"fmt"
	"strings"
)

// SecurityScheme is the scheme recorded on a backend connection.
type SecurityScheme string

const (
	SchemeBasicAuth   SecurityScheme = "basic_auth"
	SchemeBearerToken SecurityScheme = "bearer_token"
	SchemeAPIKeyAuth  SecurityScheme = "api_key_auth"
	SchemeOAuth2      SecurityScheme = "oauth2"
	SchemeKeyValue    SecurityScheme = "key_value_creds"
)

// ConnectionType is the concrete credential shape of a connection. For
// oauth2 connections it is the grant flow; otherwise it equals the scheme.
type ConnectionType string

const (
	ConnectionBasicAuth        ConnectionType = "basic_auth"
	ConnectionBearerToken      ConnectionType = "bearer_token"
	ConnectionAPIKeyAuth       ConnectionType = "api_key_auth"
	ConnectionOAuthAuthCode    ConnectionType = "oauth_auth_code_flow"
	ConnectionOAuthImplicit    ConnectionType = "oauth_auth_implicit_flow"
	ConnectionOAuthPassword    ConnectionType = "oauth_auth_password_flow"
	ConnectionOAuthClientCreds ConnectionType = "oauth_auth_client_credentials_flow"
	ConnectionKeyValue         ConnectionType = "key_value_creds"
)

var connectionTypeAliases = map[string]ConnectionType{
	"basic":     ConnectionBasicAuth,
	"bearer":    ConnectionBearerToken,
	"api_key":   ConnectionAPIKeyAuth,
	"key_value": ConnectionKeyValue,
	"kv":        ConnectionKeyValue,
}

// ParseConnectionType accepts canonical names and the short CLI aliases
// (basic, bearer, api_key, key_value, kv).
func ParseConnectionType(s string) (ConnectionType, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	if t, ok := connectionTypeAliases[norm]; ok {
		return t, nil
	}
	t := ConnectionType(norm)
	if _, ok := requiredCredentialFields[t]; ok {
		return t, nil
	}
	return "", &ParameterError{Message: fmt.Sprintf("invalid connection type %q", s)}
}

// ConnectionTypeOf derives the connection type from a scheme and, for
// oauth2, the grant flow.
func ConnectionTypeOf(scheme SecurityScheme, authType string) ConnectionType {
	if scheme != SchemeOAuth2 {
		return ConnectionType(scheme)
	}
	return ConnectionType(authType)
}

// SchemeOf is the security scheme a connection of type t is stored under.
func SchemeOf(t ConnectionType) SecurityScheme {
	if t.IsOAuth() {
		return SchemeOAuth2
	}
	return SecurityScheme(t)
}

var oauthBase = []string{"client_id", "client_secret", "well_known_url"}

var requiredCredentialFields = map[ConnectionType][]string{
	ConnectionBasicAuth:        {"username", "password"},
	ConnectionBearerToken:      {"token"},
	ConnectionAPIKeyAuth:       {"api_key"},
	ConnectionOAuthAuthCode:    oauthBase,
	ConnectionOAuthImplicit:    oauthBase,
	ConnectionOAuthPassword:    append(append([]string{}, oauthBase...), "username", "password"),
	ConnectionOAuthClientCreds: oauthBase,
	ConnectionKeyValue:         nil,
}

// RequiredCredentialFields lists the fields a connection type needs.
// Key-value connections are free-form and return nil.
func RequiredCredentialFields(t ConnectionType) []string {
	return append([]string(nil), requiredCredentialFields[t]...)
}

// IsOAuth reports whether the type is one of the oauth2 flows.
func (t ConnectionType) IsOAuth() bool {
	return strings.HasPrefix(string(t), "oauth_")
}

// Connection is a backend connection record.
type Connection struct {
	AppID          string         `json:"app_id"`
	ConnectionID   string         `json:"connection_id"`
	SecurityScheme SecurityScheme `json:"security_scheme"`
	AuthType       string         `json:"auth_type,omitempty"`
}

func (c Connection) Type() ConnectionType {
	return ConnectionTypeOf(c.SecurityScheme, c.AuthType)
}

// CreateConnection is the payload that creates an application connection.
type CreateConnection struct {
	AppID          string            `json:"appid"`
	ConnectionType ConnectionType    `json:"connection_type"`
	Credentials    map[string]string `json:"credentials"`
	Shared         bool              `json:"shared"`
}

// NewCreateConnection checks that every required field is present and
// reports all missing ones together.
func NewCreateConnection(appID string, t ConnectionType, shared bool, fields map[string]string) (*CreateConnection, error) {
	if strings.TrimSpace(appID) == "" {
		return nil, &ParameterError{Message: "app id is required"}
	}
	if _, ok := requiredCredentialFields[t]; !ok {
		return nil, &ParameterError{Message: fmt.Sprintf("invalid connection type %q", t)}
	}
	creds := make(map[string]string)
	var missing []string
	for _, f := range requiredCredentialFields[t] {
		v := fields[f]
		if v == "" {
			missing = append(missing, f)
			continue
		}
		creds[f] = v
	}
	if len(missing) > 0 {
		return nil, &ParameterError{Message: fmt.Sprintf("missing %s for connection type %s", strings.Join(missing, ", "), t)}
	}
	if t == ConnectionKeyValue || t.IsOAuth() {
		for k, v := range fields {
			if _, ok := creds[k]; !ok && v != "" {
				creds[k] = v
			}
		}
	}
	return &CreateConnection{AppID: appID, ConnectionType: t, Credentials: creds, Shared: shared}, nil
}

const (
	connectionEnvPrefix = "WXO_CONNECTION_%s_"
	schemaEnvTemplate   = "WXO_SECURITY_SCHEMA_%s"
)

// CredentialsFromEnv reads the credentials of a connection from environment
// variables. environ is in os.Environ form. The declared type must match
// WXO_SECURITY_SCHEMA_<app id>, and every missing variable is reported at once.
func CredentialsFromEnv(appID string, want ConnectionType, environ []string) (map[string]string, error) {
	sanitized := SanitizeAppID(appID)
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	schemaKey := fmt.Sprintf(schemaEnvTemplate, sanitized)
	declared, ok := env[schemaKey]
	if !ok || declared == "" {
		return nil, newValidationError("connection", "no credentials found for connection '%s'", appID)
	}
	declaredType, err := ParseConnectionType(declared)
	if err != nil || declaredType != want {
		return nil, newValidationError("connection", "the requested type '%s' does not match the type '%s' for the connection '%s'", want, declared, appID)
	}

	prefix := fmt.Sprintf(connectionEnvPrefix, sanitized)
	required := requiredCredentialFields[want]
	creds := make(map[string]string)
	if required == nil {
		for k, v := range env {
			if strings.HasPrefix(k, prefix) {
				creds[strings.TrimPrefix(k, prefix)] = v
			}
		}
		return creds, nil
	}
	var missing []string
	for _, f := range required {
		v := env[prefix+f]
		if v == "" {
			missing = append(missing, prefix+f)
			continue
		}
		creds[f] = v
	}
	if len(missing) > 0 {
		return nil, newValidationError("connection", "missing requirement environment variables '%s' for connection '%s'", strings.Join(missing, ", "), appID)
	}
	return creds, nil
}

// ExpectedCredential is a connection a tool declares it needs, optionally
// with the type it must have.
type ExpectedCredential struct {
	AppID string          `json:"app_id" yaml:"app_id"`
	Type  *ConnectionType `json:"type,omitempty" yaml:"type,omitempty"`
}

func (e ExpectedCredential) String() string {
	if e.Type == nil {
		return e.AppID
	}
	return fmt.Sprintf("%s (%s)", e.AppID, *e.Type)
}

// Credentials are the resolved secrets of a connection, used when a tool is
// invoked from this process rather than by the remote runtime.
type Credentials struct {
	Type   ConnectionType
	Values map[string]string
}

// Get returns a credential field, or "" when unset.
func (c *Credentials) Get(field string) string {
	if c == nil {
		return ""
	}
	return c.Values[field]
}
