// ABOUTME: Configuration loading and parsing for proposal-gateway
// ABOUTME: Supports YAML or TOML files with environment variable expansion, plus an env-only fallback

package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultHTTPAddr is the address the web client proxies to.
	DefaultHTTPAddr        = "0.0.0.0:5000"
	DefaultModelTimeout    = "120s"
	DefaultWorkflowTimeout = 1800

	// DriverMemory keeps sessions in process memory.
	DriverMemory = "memory"
	// DriverSQLite persists sessions to database.path.
	DriverSQLite = "sqlite"

	minJWTSecretLen = 32
)

// Config represents the complete proposal-gateway configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Model    ModelConfig    `yaml:"model" toml:"model"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Auth     AuthConfig     `yaml:"auth" toml:"auth"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
}

// ModelConfig holds the remote model endpoint connection parameters
type ModelConfig struct {
	Endpoint        string        `yaml:"endpoint" toml:"endpoint"`
	Cookie          string        `yaml:"cookie" toml:"cookie"`
	Timeout         time.Duration `yaml:"-" toml:"-"`
	WorkflowTimeout int           `yaml:"workflow_timeout" toml:"workflow_timeout"`

	// Raw string value for unmarshaling
	TimeoutRaw string `yaml:"timeout" toml:"timeout"`
}

// DatabaseConfig selects the session store backend
type DatabaseConfig struct {
	Driver string `yaml:"driver" toml:"driver"`
	Path   string `yaml:"path" toml:"path"`
}

// AuthConfig holds authentication configuration. An empty secret disables auth.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns a configuration with every optional field filled in and no
// model endpoint.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{HTTPAddr: DefaultHTTPAddr},
		Model: ModelConfig{
			TimeoutRaw:      DefaultModelTimeout,
			WorkflowTimeout: DefaultWorkflowTimeout,
		},
		Database: DatabaseConfig{Driver: DriverMemory},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
	}
	cfg.Model.Timeout, _ = time.ParseDuration(DefaultModelTimeout)
	return cfg
}

// FromEnv builds a configuration from MODEL_ENDPOINT, COOKIE and PORT on top
// of Default. Used when no config file exists.
func FromEnv() (*Config, error) {
	cfg := Default()
	cfg.Model.Endpoint = os.Getenv("MODEL_ENDPOINT")
	cfg.Model.Cookie = os.Getenv("COOKIE")
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.HTTPAddr = "0.0.0.0:" + port
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := &Config{}
	if isTOML(path) {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyDefaults()

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrEnv loads path if it exists and falls back to FromEnv otherwise.
// The boolean reports whether the file was used.
func LoadOrEnv(path string) (*Config, bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			cfg, err := FromEnv()
			return cfg, false, err
		}
		return nil, false, fmt.Errorf("checking config file: %w", err)
	}

	cfg, err := Load(path)
	return cfg, true, err
}

// Path returns the config file location.
// Priority: PROPOSAL_CONFIG env var > XDG_CONFIG_HOME/proposal/gateway.yaml > ~/.config/proposal/gateway.yaml
func Path() string {
	if envPath := os.Getenv("PROPOSAL_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "proposal", "gateway.yaml")
}

// Write encodes the configuration to path as TOML or YAML by extension.
func (c *Config) Write(path string) error {
	var buf bytes.Buffer
	if isTOML(path) {
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return fmt.Errorf("encoding toml: %w", err)
		}
	} else {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	// The file may carry a cookie and a JWT secret
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills in fields the file left empty.
func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.Model.TimeoutRaw == "" {
		c.Model.TimeoutRaw = DefaultModelTimeout
	}
	if c.Model.WorkflowTimeout == 0 {
		c.Model.WorkflowTimeout = DefaultWorkflowTimeout
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverMemory
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all configuration fields are valid.
// An empty model endpoint is allowed; the service reports itself unconfigured.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Model.Endpoint != "" {
		u, err := url.Parse(c.Model.Endpoint)
		if err != nil {
			return fmt.Errorf("model.endpoint is not a valid URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("model.endpoint must use http or https scheme")
		}
	}
	if c.Model.Timeout <= 0 {
		return fmt.Errorf("model.timeout must be positive")
	}
	if c.Model.WorkflowTimeout < 0 {
		return fmt.Errorf("model.workflow_timeout must not be negative")
	}

	switch c.Database.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("database.driver %q is not supported (use %q or %q)", c.Database.Driver, DriverMemory, DriverSQLite)
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("auth.jwt_secret must be at least %d bytes", minJWTSecretLen)
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Model.TimeoutRaw != "" {
		cfg.Model.Timeout, err = time.ParseDuration(cfg.Model.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing model.timeout %q: %w", cfg.Model.TimeoutRaw, err)
		}
	}

	return nil
}
