package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const envPrefix = "orchestrate"

// Environment is a named backend instance in the config file.
type Environment struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key,omitempty"`
}

// FileConfig defines the structure loaded from the YAML configuration file.
type FileConfig struct {
	ActiveEnvironment string                 `yaml:"active_environment"`
	Environments      map[string]Environment `yaml:"environments"`
}

// Config holds the final application configuration, merged from file and environment variables.
// Fields are loaded from environment variables with the prefix "ORCHESTRATE_", overriding file settings.
type Config struct {
	ConfigFilePath string `envconfig:"CONFIG_FILE"`
	DotenvPath     string `envconfig:"DOTENV" default:".env"`

	// Environment selects an entry of the file's environments, overriding active_environment.
	Environment string `envconfig:"ENVIRONMENT"`
	URL         string `envconfig:"URL"`
	APIKey      string `envconfig:"API_KEY"`

	HTTPClientTimeout        time.Duration `envconfig:"HTTP_CLIENT_TIMEOUT" default:"30s"`
	ShutdownTimeout          time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
	ListenAddr               string        `envconfig:"LISTEN_ADDR" default:"localhost:8080"`
	LogLevel                 string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat                string        `envconfig:"LOG_FORMAT" default:"text"`
	OtelExporterOtlpEndpoint string        `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelExporterOtlpInsecure bool          `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	DryRun                   bool          `envconfig:"DRY_RUN"`
}

// ParsedLogLevel returns the slog.Level based on the configured LogLevel string.
func (c *Config) ParsedLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		fallthrough
	default:
		return slog.LevelInfo
	}
}

// JSONLogs reports whether logs should be written as JSON.
func (c *Config) JSONLogs() bool {
	return strings.EqualFold(c.LogFormat, "json")
}

// DefaultConfigFile is used when ORCHESTRATE_CONFIG_FILE is unset.
func DefaultConfigFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "orchestrate", "config.yaml")
}

// Load reads the .env file into the process environment, then layers
// environment variables, the YAML file and environment overrides.
func Load() (*Config, error) {
	// 1. Load initial config from Env (primarily to get file paths)
	var initialCfg Config
	if err := envconfig.Process(envPrefix, &initialCfg); err != nil {
		return nil, fmt.Errorf("failed to process initial environment variables: %w", err)
	}

	// 2. Load .env without overriding variables that are already set
	if initialCfg.DotenvPath != "" {
		if err := godotenv.Load(initialCfg.DotenvPath); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to load env file '%s': %w", initialCfg.DotenvPath, err)
			}
		} else {
			slog.Debug("Loaded environment file.", "path", initialCfg.DotenvPath)
			if err := envconfig.Process(envPrefix, &initialCfg); err != nil {
				return nil, fmt.Errorf("failed to process environment variables from '%s': %w", initialCfg.DotenvPath, err)
			}
		}
	}

	// 3. Load config from YAML file
	explicit := initialCfg.ConfigFilePath != ""
	path := initialCfg.ConfigFilePath
	if !explicit {
		path = DefaultConfigFile()
	}
	fileCfg, err := readFile(path, explicit)
	if err != nil {
		return nil, err
	}

	// 4. Apply the selected environment, then env overrides
	finalCfg := initialCfg
	finalCfg.ConfigFilePath = path
	name := finalCfg.Environment
	if name == "" {
		name = fileCfg.ActiveEnvironment
	}
	if name != "" {
		env, ok := fileCfg.Environments[name]
		if !ok {
			return nil, fmt.Errorf("environment '%s' is not defined in '%s'", name, path)
		}
		finalCfg.Environment = name
		finalCfg.URL = env.URL
		finalCfg.APIKey = env.APIKey
	}

	if err := envconfig.Process(envPrefix, &finalCfg); err != nil {
		return nil, fmt.Errorf("failed to process overriding environment variables: %w", err)
	}
	return &finalCfg, nil
}

// readFile returns an empty FileConfig when path is empty, or when the
// default file does not exist.
func readFile(path string, explicit bool) (FileConfig, error) {
	var fileCfg FileConfig
	if path == "" {
		return fileCfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			slog.Debug("No config file found, using env vars only.", "path", path)
			return fileCfg, nil
		}
		return fileCfg, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fileCfg, fmt.Errorf("failed to unmarshal config file '%s': %w", path, err)
	}
	slog.Debug("Loaded configuration from file.", "path", path)
	return fileCfg, nil
}
