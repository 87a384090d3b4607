package configs_test

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/orchestrate/configs"
)

var discard = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestEnvironmentFile(t *testing.T) {
	tests := []struct {
		name    string
		initial string
		edit    func(f *configs.EnvironmentFile) error
		want    []configs.NamedEnvironment
		wantErr string
	}{
		{
			name: "add to a missing file",
			edit: func(f *configs.EnvironmentFile) error {
				_, err := f.Add("local", "http://localhost:4321/", false)
				return err
			},
			want: []configs.NamedEnvironment{
				{Name: "local", Environment: configs.Environment{URL: "http://localhost:4321"}},
			},
		},
		{
			name:    "add and activate",
			initial: fileYAML,
			edit: func(f *configs.EnvironmentFile) error {
				_, err := f.Add("staging", "https://staging.example.com", true)
				return err
			},
			want: []configs.NamedEnvironment{
				{Name: "dev", Environment: configs.Environment{URL: "https://dev.example.com", APIKey: "dev-key"}},
				{Name: "prod", Environment: configs.Environment{URL: "https://prod.example.com", APIKey: "prod-key"}},
				{Name: "staging", Active: true, Environment: configs.Environment{URL: "https://staging.example.com"}},
			},
		},
		{
			name:    "re-adding keeps the api key",
			initial: fileYAML,
			edit: func(f *configs.EnvironmentFile) error {
				updated, err := f.Add("prod", "https://prod2.example.com", false)
				if !updated {
					return errors.New("expected an update")
				}
				return err
			},
			want: []configs.NamedEnvironment{
				{Name: "dev", Active: true, Environment: configs.Environment{URL: "https://dev.example.com", APIKey: "dev-key"}},
				{Name: "prod", Environment: configs.Environment{URL: "https://prod2.example.com", APIKey: "prod-key"}},
			},
		},
		{
			name:    "add rejects a non-http url",
			initial: fileYAML,
			edit: func(f *configs.EnvironmentFile) error {
				_, err := f.Add("bad", "ftp://files.example.com", false)
				return err
			},
			wantErr: "invalid url 'ftp://files.example.com', expected an http or https URL",
		},
		{
			name:    "remove the active environment",
			initial: fileYAML,
			edit:    func(f *configs.EnvironmentFile) error { return f.Remove("dev") },
			want: []configs.NamedEnvironment{
				{Name: "prod", Environment: configs.Environment{URL: "https://prod.example.com", APIKey: "prod-key"}},
			},
		},
		{
			name:    "remove an unknown environment",
			initial: fileYAML,
			edit:    func(f *configs.EnvironmentFile) error { return f.Remove("qa") },
			wantErr: "environment not found: 'qa'",
		},
		{
			name:    "activate stores the api key",
			initial: fileYAML,
			edit:    func(f *configs.EnvironmentFile) error { return f.Activate("prod", "rotated") },
			want: []configs.NamedEnvironment{
				{Name: "dev", Environment: configs.Environment{URL: "https://dev.example.com", APIKey: "dev-key"}},
				{Name: "prod", Active: true, Environment: configs.Environment{URL: "https://prod.example.com", APIKey: "rotated"}},
			},
		},
		{
			name:    "activate without a key keeps the stored one",
			initial: fileYAML,
			edit:    func(f *configs.EnvironmentFile) error { return f.Activate("prod", "") },
			want: []configs.NamedEnvironment{
				{Name: "dev", Environment: configs.Environment{URL: "https://dev.example.com", APIKey: "dev-key"}},
				{Name: "prod", Active: true, Environment: configs.Environment{URL: "https://prod.example.com", APIKey: "prod-key"}},
			},
		},
		{
			name:    "activate an unknown environment",
			initial: fileYAML,
			edit:    func(f *configs.EnvironmentFile) error { return f.Activate("qa", "key") },
			wantErr: "environment not found: 'qa'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "nested", "config.yaml")
			if tt.initial != "" {
				require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
				writeFile(t, filepath.Dir(path), "config.yaml", tt.initial)
			}
			f := configs.NewEnvironmentFile(path, discard)

			err := tt.edit(f)

			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			got, err := f.List()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnvironmentFile_ActivatedEnvironmentIsLoaded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	f := configs.NewEnvironmentFile(path, discard)
	_, err := f.Add("local", "http://localhost:4321", false)
	require.NoError(t, err)
	require.NoError(t, f.Activate("local", "local-key"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	t.Setenv("ORCHESTRATE_CONFIG_FILE", path)
	t.Setenv("ORCHESTRATE_DOTENV", filepath.Join(t.TempDir(), ".env"))
	cfg, err := configs.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4321", cfg.URL)
	assert.Equal(t, "local-key", cfg.APIKey)
}

func TestEnvironmentFile_ListMissingFile(t *testing.T) {
	f := configs.NewEnvironmentFile(filepath.Join(t.TempDir(), "absent.yaml"), discard)

	got, err := f.List()

	require.NoError(t, err)
	assert.Empty(t, got)
}
