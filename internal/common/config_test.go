package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable applyEnv reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	for _, k := range []string{
		"SNAPCHECK_CONFIG", "DB_URL", "DB_DRIVER", "GRPC_ADDR", "LLM_PROVIDER", "LLM_MODEL",
		"OPENAI_API_KEY", "GEMINI_API_KEY", "OPENAI_BASE_URL", "LLM_TIMEOUT", "BLOB_ROOT",
		"REDIS_URL", "BATCH_QUEUE_SIZE", "BATCH_IDLE_EXPIRY", "IMAGE_MAX_BYTES",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, ":8080", cfg.Server.GRPCAddr)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 64, cfg.Batch.QueueSize)
	assert.Equal(t, 2*time.Hour, cfg.Batch.IdleExpiry)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "snapcheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: sqlite
  dsn: file:test.db
llm:
  provider: gemini
  gemini_api_key: ${TEST_GEMINI_KEY}
  timeout: 30s
auth:
  tokens:
    - token: ${TEST_TOKEN}
      user_id: t-1
      role: teacher
batch:
  queue_size: 8
`), 0o644))

	t.Setenv("SNAPCHECK_CONFIG", path)
	t.Setenv("TEST_GEMINI_KEY", "g-key")
	t.Setenv("TEST_TOKEN", "secret")
	t.Setenv("GRPC_ADDR", "9000")
	t.Setenv("BATCH_QUEUE_SIZE", "16")
	t.Setenv("IMAGE_MAX_BYTES", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file:test.db", cfg.Database.DSN)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "g-key", cfg.LLM.GeminiAPIKey)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	require.Len(t, cfg.Auth.Tokens, 1)
	assert.Equal(t, "secret", cfg.Auth.Tokens[0].Token)
	assert.Equal(t, ":9000", cfg.Server.GRPCAddr)
	assert.Equal(t, 16, cfg.Batch.QueueSize, "env wins over the file")
	assert.Zero(t, cfg.Imaging.MaxBytes, "unparseable values keep the previous setting")
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_BadFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("SNAPCHECK_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		c := defaultConfig()
		c.Database.DSN = "postgres://x"
		c.LLM.APIKey = "sk"
		return c
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"postgres without dsn", func(c *Config) { c.Database.DSN = "" }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"openai without key", func(c *Config) { c.LLM.APIKey = "" }},
		{"gemini without key", func(c *Config) { c.LLM.Provider = "gemini" }},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "llama" }},
		{"no grpc addr", func(c *Config) { c.Server.GRPCAddr = "" }},
		{"no blob root", func(c *Config) { c.Blob.Root = "" }},
		{"unknown token role", func(c *Config) { c.Auth.Tokens = []TokenConfig{{Token: "x", UserID: "u", Role: "admin"}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	c := valid()
	c.Auth.Tokens = []TokenConfig{{Token: "x", UserID: "u", Role: "Student"}, {Token: "y", UserID: "v"}}
	assert.NoError(t, c.Validate(), "roles are case-insensitive and default to teacher")

	c = valid()
	c.Database.Driver, c.Database.DSN = "sqlite", ""
	assert.NoError(t, c.Validate(), "sqlite falls back to an in-memory database")
}
