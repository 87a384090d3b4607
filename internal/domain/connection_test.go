package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/orchestrate/internal/domain"
)

func TestParseConnectionType(t *testing.T) {
	tests := []struct {
		in      string
		want    domain.ConnectionType
		wantErr bool
	}{
		{in: "basic", want: domain.ConnectionBasicAuth},
		{in: "bearer", want: domain.ConnectionBearerToken},
		{in: "api_key", want: domain.ConnectionAPIKeyAuth},
		{in: "kv", want: domain.ConnectionKeyValue},
		{in: "oauth_auth_password_flow", want: domain.ConnectionOAuthPassword},
		{in: "BASIC_AUTH", want: domain.ConnectionBasicAuth},
		{in: "digest", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := domain.ParseConnectionType(tt.in)
			if tt.wantErr {
				var perr *domain.ParameterError
				assert.True(t, errors.As(err, &perr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConnectionTypeOf(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(domain.ConnectionBasicAuth, domain.ConnectionTypeOf(domain.SchemeBasicAuth, ""))
	assert.Equal(domain.ConnectionKeyValue, domain.ConnectionTypeOf(domain.SchemeKeyValue, "ignored"))
	assert.Equal(domain.ConnectionOAuthClientCreds, domain.ConnectionTypeOf(domain.SchemeOAuth2, "oauth_auth_client_credentials_flow"))

	c := domain.Connection{SecurityScheme: domain.SchemeOAuth2, AuthType: string(domain.ConnectionOAuthImplicit)}
	assert.Equal(domain.ConnectionOAuthImplicit, c.Type())
}

func TestRequiredCredentialFields(t *testing.T) {
	assert := assert.New(t)
	assert.Equal([]string{"username", "password"}, domain.RequiredCredentialFields(domain.ConnectionBasicAuth))
	assert.Equal([]string{"client_id", "client_secret", "well_known_url", "username", "password"},
		domain.RequiredCredentialFields(domain.ConnectionOAuthPassword))
	assert.Equal([]string{"client_id", "client_secret", "well_known_url"},
		domain.RequiredCredentialFields(domain.ConnectionOAuthAuthCode))
	assert.Nil(domain.RequiredCredentialFields(domain.ConnectionKeyValue))
}

func TestNewCreateConnection(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	_, err := domain.NewCreateConnection("app", domain.ConnectionOAuthPassword, false, map[string]string{"client_id": "id"})
	require.Error(err)
	assert.Contains(err.Error(), "client_secret, well_known_url, username, password")

	c, err := domain.NewCreateConnection("app", domain.ConnectionBearerToken, true, map[string]string{"token": "t", "extra": "x"})
	require.NoError(err)
	assert.Equal(map[string]string{"token": "t"}, c.Credentials)
	assert.True(c.Shared)

	kv, err := domain.NewCreateConnection("app", domain.ConnectionKeyValue, false, map[string]string{"a": "1", "b": "2"})
	require.NoError(err)
	assert.Equal(map[string]string{"a": "1", "b": "2"}, kv.Credentials)
}

func TestCredentialsFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		appID   string
		want    domain.ConnectionType
		environ []string
		expect  map[string]string
		wantMsg string
	}{
		{
			name:  "basic auth with sanitized app id",
			appID: "my-app.v2",
			want:  domain.ConnectionBasicAuth,
			environ: []string{
				"WXO_SECURITY_SCHEMA_my_app_v2=basic_auth",
				"WXO_CONNECTION_my_app_v2_username=user",
				"WXO_CONNECTION_my_app_v2_password=pass",
			},
			expect: map[string]string{"username": "user", "password": "pass"},
		},
		{
			name:  "key value strips prefix",
			appID: "kv",
			want:  domain.ConnectionKeyValue,
			environ: []string{
				"WXO_SECURITY_SCHEMA_kv=key_value_creds",
				"WXO_CONNECTION_kv_REGION=us-south",
				"WXO_CONNECTION_kv_TOKEN=abc=def",
				"UNRELATED=1",
			},
			expect: map[string]string{"REGION": "us-south", "TOKEN": "abc=def"},
		},
		{
			name:    "no schema",
			appID:   "ghost",
			want:    domain.ConnectionBearerToken,
			environ: []string{},
			wantMsg: "no credentials found for connection 'ghost'",
		},
		{
			name:    "type mismatch",
			appID:   "app",
			want:    domain.ConnectionBearerToken,
			environ: []string{"WXO_SECURITY_SCHEMA_app=api_key_auth", "WXO_CONNECTION_app_api_key=k"},
			wantMsg: "does not match",
		},
		{
			name:    "all missing reported",
			appID:   "app",
			want:    domain.ConnectionOAuthClientCreds,
			environ: []string{"WXO_SECURITY_SCHEMA_app=oauth_auth_client_credentials_flow", "WXO_CONNECTION_app_client_id=id"},
			wantMsg: "WXO_CONNECTION_app_client_secret, WXO_CONNECTION_app_well_known_url",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.CredentialsFromEnv(tt.appID, tt.want, tt.environ)
			if tt.wantMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expect, got)
		})
	}
}
