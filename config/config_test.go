package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retracehq/retrace/blob"
	"github.com/retracehq/retrace/config"
)

func TestLoad_Defaults(t *testing.T) {
	// Load with no config files should use defaults
	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 5710, cfg.Server.Port)
	assert.Equal(t, 60, cfg.Server.RequestTimeout)
	assert.Equal(t, 30, cfg.Service.CleanupTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "retrace.db", cfg.Database.DSN)
	assert.Equal(t, "retrace_sessions", cfg.Database.Tables.Sessions)
	assert.Equal(t, "memory", cfg.Storage.Mode)
	assert.Equal(t, "/api/blob/", cfg.Storage.ProxyPrefix)
	assert.Equal(t, int64(10485760), cfg.Ingest.MaxBodySize)
	assert.Equal(t, 86400, cfg.Share.TTL)
	assert.Equal(t, "https://api.anthropic.com", cfg.AI.Endpoint)
	assert.Equal(t, 256, cfg.AI.MaxTokens)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_ConfigFile(t *testing.T) {
	// Create a temp config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 8080
  request_timeout: 15
database:
  type: postgres
  dsn: postgres://localhost/test
  tables:
    sessions: custom_sessions
storage:
  mode: remote
  endpoint: https://blob.example.com
  bucket: recordings
  service_key: sk-test
ingest:
  key: ingest-key
  max_body_size: 1048576
share:
  secret: share-secret
  ttl: 3600
admin:
  username: ops
  password_hash: $2a$10$abcdefghijklmnopqrstuv
ai:
  api_key: ak-test
  model: claude-opus-4-1
  max_tokens: 512
metrics:
  enabled: false
log:
  level: debug
  format: json
`
	err := os.WriteFile(configPath, []byte(configContent), 0o644)
	require.NoError(t, err)

	cfg, err := config.Load([]string{configPath}, nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15, cfg.Server.RequestTimeout)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "postgres://localhost/test", cfg.Database.DSN)
	assert.Equal(t, "custom_sessions", cfg.Database.Tables.Sessions)
	assert.Equal(t, "remote", cfg.Storage.Mode)
	assert.Equal(t, "https://blob.example.com", cfg.Storage.Endpoint)
	assert.Equal(t, "recordings", cfg.Storage.Bucket)
	assert.Equal(t, "sk-test", cfg.Storage.ServiceKey)
	assert.Equal(t, "ingest-key", cfg.Ingest.Key)
	assert.Equal(t, int64(1048576), cfg.Ingest.MaxBodySize)
	assert.Equal(t, "share-secret", cfg.Share.Secret)
	assert.Equal(t, 3600, cfg.Share.TTL)
	assert.Equal(t, "ops", cfg.Admin.Username)
	assert.Equal(t, "ak-test", cfg.AI.APIKey)
	assert.Equal(t, "claude-opus-4-1", cfg.AI.Model)
	assert.Equal(t, 512, cfg.AI.MaxTokens)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_ConfigFileMerge(t *testing.T) {
	tmpDir := t.TempDir()

	// Base config
	basePath := filepath.Join(tmpDir, "base.yaml")
	baseContent := `
server:
  port: 5710
database:
  type: sqlite
  dsn: retrace.db
storage:
  mode: memory
log:
  level: info
  format: text
`
	err := os.WriteFile(basePath, []byte(baseContent), 0o644)
	require.NoError(t, err)

	// Override config
	overridePath := filepath.Join(tmpDir, "override.yaml")
	overrideContent := `
server:
  port: 9000
log:
  level: warn
`
	err = os.WriteFile(overridePath, []byte(overrideContent), 0o644)
	require.NoError(t, err)

	// Load with merge (later files override earlier)
	cfg, err := config.Load([]string{basePath, overridePath}, nil)
	require.NoError(t, err)

	// Overridden values
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Log.Level)

	// Preserved values from base
	assert.Equal(t, "memory", cfg.Storage.Mode)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_ValidationError_InvalidPort(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 99999
`
	err := os.WriteFile(configPath, []byte(configContent), 0o644)
	require.NoError(t, err)

	_, err = config.Load([]string{configPath}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate config")
}

func TestLoad_ValidationError_InvalidStorageMode(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
storage:
  mode: disk
`
	err := os.WriteFile(configPath, []byte(configContent), 0o644)
	require.NoError(t, err)

	_, err = config.Load([]string{configPath}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate config")
}

func TestLoad_ValidationError_ShareTTLTooLong(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
share:
  secret: share-secret
  ttl: 999999
`
	err := os.WriteFile(configPath, []byte(configContent), 0o644)
	require.NoError(t, err)

	_, err = config.Load([]string{configPath}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate config")
}

func TestLoad_ValidationError_InvalidLogFormat(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
log:
  format: xml
`
	err := os.WriteFile(configPath, []byte(configContent), 0o644)
	require.NoError(t, err)

	_, err = config.Load([]string{configPath}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate config")
}

func TestLoad_WithCORS(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
cors:
  enabled: true
  allowed_origins:
    - https://example.com
    - https://app.example.com
  allowed_methods:
    - GET
    - POST
  allowed_headers:
    - Content-Type
  max_age: 600
`
	err := os.WriteFile(configPath, []byte(configContent), 0o644)
	require.NoError(t, err)

	cfg, err := config.Load([]string{configPath}, nil)
	require.NoError(t, err)

	assert.True(t, cfg.CORS.Enabled)
	assert.Equal(t, []string{"https://example.com", "https://app.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, []string{"GET", "POST"}, cfg.CORS.AllowedMethods)
	assert.Equal(t, []string{"Content-Type"}, cfg.CORS.AllowedHeaders)
	assert.Equal(t, 600, cfg.CORS.MaxAge)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	// Set environment variables
	t.Setenv("RETRACE_SERVER_PORT", "9090")
	t.Setenv("RETRACE_DATABASE_TYPE", "postgres")
	t.Setenv("RETRACE_STORAGE_MODE", "remote")

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "remote", cfg.Storage.Mode)
}

func TestLoad_SecretsFromEnv(t *testing.T) {
	t.Setenv("RETRACE_SECRET_STORAGE_SERVICE_KEY", "sk-from-env")
	t.Setenv("RETRACE_SECRET_SHARE_SECRET", "ss-from-env")
	t.Setenv("RETRACE_SECRET_AI_API_KEY", "ak-from-env")

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "sk-from-env", cfg.Storage.ServiceKey)
	assert.Equal(t, "ss-from-env", cfg.Share.Secret)
	assert.Equal(t, "ak-from-env", cfg.AI.APIKey)
}

func TestLoad_SecretsFromFile(t *testing.T) {
	tmpDir := t.TempDir()

	secretsPath := filepath.Join(tmpDir, "secrets.json")
	err := os.WriteFile(secretsPath, []byte(`{"share.secret": "ss-from-file"}`), 0o600)
	require.NoError(t, err)

	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := `
secrets:
  file: ` + secretsPath + `
`
	err = os.WriteFile(configPath, []byte(configContent), 0o644)
	require.NoError(t, err)

	cfg, err := config.Load([]string{configPath}, nil)
	require.NoError(t, err)

	assert.Equal(t, "ss-from-file", cfg.Share.Secret)
}

func TestLoad_SecretsDoNotOverrideConfig(t *testing.T) {
	t.Setenv("RETRACE_SECRET_SHARE_SECRET", "ss-from-env")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := `
share:
  secret: ss-from-config
`
	err := os.WriteFile(configPath, []byte(configContent), 0o644)
	require.NoError(t, err)

	cfg, err := config.Load([]string{configPath}, nil)
	require.NoError(t, err)

	// Values written into the config win over the secret sources
	assert.Equal(t, "ss-from-config", cfg.Share.Secret)
}

func TestStorageConfig_BlobSettings(t *testing.T) {
	storage := config.StorageConfig{
		Mode:        "remote",
		Endpoint:    "https://blob.example.com",
		Bucket:      "recordings",
		ServiceKey:  "sk",
		PublicBase:  "https://cdn.example.com/r/",
		ProxyPrefix: "/files/",
	}

	settings := storage.BlobSettings()
	assert.Equal(t, "remote", settings.Mode)
	assert.Equal(t, "https://blob.example.com", settings.Endpoint)
	assert.Equal(t, "recordings", settings.Bucket)
	assert.Equal(t, "sk", settings.ServiceKey)
	assert.Equal(t, "https://cdn.example.com/r/", settings.PublicBase)
	assert.Equal(t, "/files/", settings.ProxyPrefix)
}

func TestSnapshot_Swap(t *testing.T) {
	snap := config.NewSnapshot(config.StorageConfig{Mode: "memory"})

	// The blob store reads settings through the Source interface
	var source blob.Source = snap
	assert.Equal(t, "memory", source.BlobSettings().Mode)

	snap.Swap(config.StorageConfig{
		Mode:       "remote",
		Endpoint:   "https://blob.example.com",
		Bucket:     "recordings",
		ServiceKey: "sk",
	})

	settings := source.BlobSettings()
	assert.Equal(t, "remote", settings.Mode)
	assert.Equal(t, "recordings", settings.Bucket)
}
