// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, defaults, env fallback and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeFile(t, "gateway.yaml", `
server:
  http_addr: "127.0.0.1:5001"

model:
  endpoint: "https://cortex.example.com/api/chat"
  cookie: "session=abc"
  timeout: "90s"
  workflow_timeout: 600

database:
  driver: "sqlite"
  path: "./sessions.db"

auth:
  jwt_secret: "0123456789abcdef0123456789abcdef"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "127.0.0.1:5001" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "127.0.0.1:5001")
	}
	if cfg.Model.Endpoint != "https://cortex.example.com/api/chat" {
		t.Errorf("Model.Endpoint = %q", cfg.Model.Endpoint)
	}
	if cfg.Model.Cookie != "session=abc" {
		t.Errorf("Model.Cookie = %q", cfg.Model.Cookie)
	}
	if cfg.Model.Timeout != 90*time.Second {
		t.Errorf("Model.Timeout = %v, want %v", cfg.Model.Timeout, 90*time.Second)
	}
	if cfg.Model.WorkflowTimeout != 600 {
		t.Errorf("Model.WorkflowTimeout = %d, want 600", cfg.Model.WorkflowTimeout)
	}
	if cfg.Database.Driver != DriverSQLite || cfg.Database.Path != "./sessions.db" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_ValidTOML(t *testing.T) {
	path := writeFile(t, "gateway.toml", `
[server]
http_addr = "127.0.0.1:5002"

[model]
endpoint = "http://localhost:9000/chat"
timeout = "2m"

[database]
driver = "memory"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:5002", cfg.Server.HTTPAddr)
	assert.Equal(t, "http://localhost:9000/chat", cfg.Model.Endpoint)
	assert.Equal(t, 2*time.Minute, cfg.Model.Timeout)
	assert.Equal(t, DefaultWorkflowTimeout, cfg.Model.WorkflowTimeout)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeFile(t, "gateway.yaml", "model:\n  endpoint: \"\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultHTTPAddr, cfg.Server.HTTPAddr)
	assert.Equal(t, 120*time.Second, cfg.Model.Timeout)
	assert.Equal(t, DefaultWorkflowTimeout, cfg.Model.WorkflowTimeout)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Empty(t, cfg.Model.Endpoint, "an unconfigured endpoint is not an error")
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_MODEL_ENDPOINT", "https://model.example.com/q")
	t.Setenv("TEST_COOKIE", "sid=xyz")

	path := writeFile(t, "gateway.yaml", `
model:
  endpoint: "${TEST_MODEL_ENDPOINT}"
  cookie: "${TEST_COOKIE}"
  workflow_timeout: 10
  timeout: "5s"
  extra: "${TEST_UNSET_VARIABLE_XYZ}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://model.example.com/q", cfg.Model.Endpoint)
	assert.Equal(t, "sid=xyz", cfg.Model.Cookie)
}

func TestExpandEnvVars_UnsetBecomesEmpty(t *testing.T) {
	os.Unsetenv("DEFINITELY_NOT_SET_12345")
	got := expandEnvVars("a=${DEFINITELY_NOT_SET_12345};")
	if got != "a=;" {
		t.Errorf("expandEnvVars() = %q, want %q", got, "a=;")
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"invalid duration", "c.yaml", "model:\n  timeout: \"soon\"\n", "parsing model.timeout"},
		{"bad endpoint scheme", "c.yaml", "model:\n  endpoint: \"ftp://x\"\n", "http or https"},
		{"unknown driver", "c.yaml", "database:\n  driver: \"postgres\"\n", "not supported"},
		{"sqlite without path", "c.yaml", "database:\n  driver: \"sqlite\"\n", "database.path is required"},
		{"short jwt secret", "c.yaml", "auth:\n  jwt_secret: \"short\"\n", "at least 32 bytes"},
		{"bad log level", "c.yaml", "logging:\n  level: \"loud\"\n", "logging.level"},
		{"bad log format", "c.yaml", "logging:\n  format: \"xml\"\n", "logging.format"},
		{"invalid yaml", "c.yaml", "server: [unclosed\n", "parsing config file"},
		{"invalid toml", "c.toml", "[server\nhttp_addr = 1\n", "parsing config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)

			_, err := Load(path)
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestFromEnv(t *testing.T) {
	t.Setenv("MODEL_ENDPOINT", "https://cortex.example.com/api")
	t.Setenv("COOKIE", "auth=1")
	t.Setenv("PORT", "6000")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://cortex.example.com/api", cfg.Model.Endpoint)
	assert.Equal(t, "auth=1", cfg.Model.Cookie)
	assert.Equal(t, "0.0.0.0:6000", cfg.Server.HTTPAddr)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
}

func TestFromEnv_Unconfigured(t *testing.T) {
	t.Setenv("MODEL_ENDPOINT", "")
	t.Setenv("COOKIE", "")
	t.Setenv("PORT", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Empty(t, cfg.Model.Endpoint)
	assert.Equal(t, DefaultHTTPAddr, cfg.Server.HTTPAddr)
}

func TestLoadOrEnv(t *testing.T) {
	t.Setenv("MODEL_ENDPOINT", "https://env.example.com")

	cfg, fromFile, err := LoadOrEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.False(t, fromFile)
	assert.Equal(t, "https://env.example.com", cfg.Model.Endpoint)

	path := writeFile(t, "gateway.yaml", "model:\n  endpoint: \"https://file.example.com\"\n")
	cfg, fromFile, err = LoadOrEnv(path)
	require.NoError(t, err)
	assert.True(t, fromFile)
	assert.Equal(t, "https://file.example.com", cfg.Model.Endpoint)
}

func TestPath(t *testing.T) {
	t.Setenv("PROPOSAL_CONFIG", "/etc/proposal.toml")
	assert.Equal(t, "/etc/proposal.toml", Path())

	t.Setenv("PROPOSAL_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "proposal", "gateway.yaml"), Path())
}

func TestWrite_RoundTrip(t *testing.T) {
	for _, name := range []string{"gateway.yaml", "gateway.toml"} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			cfg.Model.Endpoint = "https://cortex.example.com/api"
			cfg.Model.Cookie = "sid=1"
			cfg.Database = DatabaseConfig{Driver: DriverSQLite, Path: "/tmp/sessions.db"}

			path := filepath.Join(t.TempDir(), "nested", name)
			require.NoError(t, cfg.Write(path))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, cfg.Model.Endpoint, loaded.Model.Endpoint)
			assert.Equal(t, cfg.Model.Cookie, loaded.Model.Cookie)
			assert.Equal(t, cfg.Model.Timeout, loaded.Model.Timeout)
			assert.Equal(t, cfg.Database, loaded.Database)
			assert.Equal(t, cfg.Server, loaded.Server)
		})
	}
}
