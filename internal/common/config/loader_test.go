package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
app:
  name: procurement-assistant
  environment: test
logging:
  level: debug
  format: console
`

// ==========================
// Core Functionality Tests
// ==========================

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "none", cfg.Store.SearchBackend)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 300000, cfg.Cache.TTL)
	assert.Equal(t, 100, cfg.Cache.MaxEntries)
	assert.Equal(t, 1000, cfg.Validator.MaxQueryLength)
	assert.Equal(t, 500, cfg.Validator.LongQueryWarning)
	assert.Equal(t, 30, cfg.Validator.RateLimit)
	assert.Equal(t, 60000, cfg.Validator.RateWindow)
	assert.Equal(t, "openai", cfg.APIs.GenAI.Provider)
	assert.Equal(t, "gpt-4", cfg.APIs.GenAI.Model)
	assert.Equal(t, 0.7, cfg.APIs.GenAI.Temperature)
	assert.Equal(t, 2000, cfg.APIs.GenAI.MaxTokens)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 5*time.Minute, GetDuration(cfg.Cache.TTL))
}

func TestLoadFromFile_GeminiModelDefault(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig+`
apis:
  genai:
    provider: gemini
`))
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", cfg.APIs.GenAI.Model)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_PG_HOST", "db.internal")
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig+`
store:
  backend: postgres
database:
  postgres:
    host: ${TEST_PG_HOST}
    database: procurement
    user: analyst
`))
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
	assert.Contains(t, cfg.Database.Postgres.GetDSN(), "host=db.internal port=5432")
	assert.Contains(t, cfg.Database.Postgres.GetDSN(), "sslmode=disable")
}

func TestLoadFromFile_APIKeyFallsBackToOpenAIEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.APIs.GenAI.APIKey)
}

func TestLoadFromFile_EnvOverridesBackend(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("DATABASE_REDIS_ADDRESS", "localhost:6379")

	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.True(t, cfg.UsesRedis())
}

// ==========================
// Validation Tests
// ==========================

func TestLoadFromFile_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		errPart string
	}{
		{
			name:    "unknown store backend",
			body:    "store:\n  backend: mongo\n",
			errPart: "Backend",
		},
		{
			name:    "postgres without host",
			body:    "store:\n  backend: postgres\n",
			errPart: "database.postgres.host",
		},
		{
			name:    "redis cache without address",
			body:    "cache:\n  backend: redis\n",
			errPart: "database.redis.address",
		},
		{
			name:    "elasticsearch search without url",
			body:    "store:\n  search_backend: elasticsearch\n",
			errPart: "database.elasticsearch",
		},
		{
			name:    "camunda enabled without broker",
			body:    "camunda:\n  enabled: true\n",
			errPart: "BrokerAddress",
		},
		{
			name:    "sns enabled without topic",
			body:    "security:\n  sns:\n    enabled: true\n    region: us-east-1\n",
			errPart: "TopicARN",
		},
		{
			name:    "bad log format",
			body:    "logging:\n  format: xml\n",
			errPart: "Format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestGetWorkerConfig_Fallback(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"process-procurement-query": {Enabled: false, MaxJobsActive: 2},
	}}

	assert.False(t, GetWorkerConfig(cfg, "process-procurement-query").Enabled)

	def := GetWorkerConfig(cfg, "unknown")
	assert.True(t, def.Enabled)
	assert.Equal(t, 5, def.MaxJobsActive)
}
