package configs

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEnvironmentNotFound is returned when a named environment is not in the file.
var ErrEnvironmentNotFound = errors.New("environment not found")

// EnvironmentFile edits the environments section of a config file.
type EnvironmentFile struct {
	path   string
	logger *slog.Logger
}

func NewEnvironmentFile(path string, logger *slog.Logger) *EnvironmentFile {
	return &EnvironmentFile{path: path, logger: logger.With("component", "environment_file")}
}

// Path is the file being edited.
func (f *EnvironmentFile) Path() string {
	return f.path
}

// NamedEnvironment is an environment together with its name.
type NamedEnvironment struct {
	Name   string
	Active bool
	Environment
}

// List returns the environments sorted by name. A missing file has none.
func (f *EnvironmentFile) List() ([]NamedEnvironment, error) {
	fileCfg, err := f.read()
	if err != nil {
		return nil, err
	}
	envs := make([]NamedEnvironment, 0, len(fileCfg.Environments))
	for name, env := range fileCfg.Environments {
		envs = append(envs, NamedEnvironment{Name: name, Active: name == fileCfg.ActiveEnvironment, Environment: env})
	}
	sort.Slice(envs, func(i, j int) bool { return envs[i].Name < envs[j].Name })
	return envs, nil
}

// Add creates the environment, or points an existing one at rawURL while
// keeping its API key. It reports whether an existing entry was replaced.
func (f *EnvironmentFile) Add(name, rawURL string, activate bool) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, errors.New("environment name must not be empty")
	}
	if err := validateURL(rawURL); err != nil {
		return false, err
	}
	fileCfg, err := f.read()
	if err != nil {
		return false, err
	}
	if fileCfg.Environments == nil {
		fileCfg.Environments = make(map[string]Environment)
	}
	existing, updated := fileCfg.Environments[name]
	existing.URL = strings.TrimRight(rawURL, "/")
	fileCfg.Environments[name] = existing
	if activate {
		fileCfg.ActiveEnvironment = name
	}
	if err := f.write(fileCfg); err != nil {
		return false, err
	}
	f.logger.Info("Saved environment", slog.String("name", name), slog.Bool("updated", updated), slog.Bool("active", activate))
	return updated, nil
}

// Remove deletes the environment. Removing the active one leaves no
// environment active.
func (f *EnvironmentFile) Remove(name string) error {
	fileCfg, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := fileCfg.Environments[name]; !ok {
		return fmt.Errorf("%w: '%s'", ErrEnvironmentNotFound, name)
	}
	delete(fileCfg.Environments, name)
	if fileCfg.ActiveEnvironment == name {
		fileCfg.ActiveEnvironment = ""
	}
	if err := f.write(fileCfg); err != nil {
		return err
	}
	f.logger.Info("Removed environment", slog.String("name", name))
	return nil
}

// Activate makes name the active environment. A non-empty apiKey is stored
// with it; an empty one keeps the stored key.
func (f *EnvironmentFile) Activate(name, apiKey string) error {
	fileCfg, err := f.read()
	if err != nil {
		return err
	}
	env, ok := fileCfg.Environments[name]
	if !ok {
		return fmt.Errorf("%w: '%s'", ErrEnvironmentNotFound, name)
	}
	if apiKey != "" {
		env.APIKey = apiKey
		fileCfg.Environments[name] = env
	}
	fileCfg.ActiveEnvironment = name
	if err := f.write(fileCfg); err != nil {
		return err
	}
	f.logger.Info("Activated environment", slog.String("name", name))
	return nil
}

func (f *EnvironmentFile) read() (FileConfig, error) {
	if f.path == "" {
		return FileConfig{}, errors.New("no config file path, set ORCHESTRATE_CONFIG_FILE")
	}
	return readFile(f.path, false)
}

// write saves the file with owner-only permissions, since it holds API keys.
func (f *EnvironmentFile) write(fileCfg FileConfig) error {
	data, err := yaml.Marshal(fileCfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file '%s': %w", f.path, err)
	}
	return nil
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid url '%s', expected an http or https URL", rawURL)
	}
	return nil
}
