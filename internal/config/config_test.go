package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"PORT", "WINDSPIRE_DB", "GOOGLE_API_KEY", "GEMINI_API_KEY", "WINDSPIRE_MODEL", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":5010", cfg.Server.Addr)
	assert.Equal(t, 24*time.Hour, Duration(cfg.Auth.SessionTTL))
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "windspire.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
genai:
  model: gemini-2.5-pro
generation:
  concurrency: 4
logging:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "gemini-2.5-pro", cfg.GenAI.Model)
	assert.Equal(t, 4, cfg.Generation.Concurrency)
	assert.Equal(t, 50, cfg.Generation.MaxCount, "unset fields keep defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("PORT and DB", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "8081")
		t.Setenv("WINDSPIRE_DB", "/tmp/x.db")
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, ":8081", cfg.Server.Addr)
		assert.Equal(t, "/tmp/x.db", cfg.Database.Path)
	})

	t.Run("GEMINI_API_KEY wins over GOOGLE_API_KEY", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GOOGLE_API_KEY", "google")
		t.Setenv("GEMINI_API_KEY", "gemini")
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "gemini", cfg.GenAI.APIKey)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
	}{
		{"bad duration", func(c *Config) { c.Auth.SessionTTL = "forever" }},
		{"zero concurrency", func(c *Config) { c.Generation.Concurrency = 0 }},
		{"zero max", func(c *Config) { c.Generation.MaxCount = 0 }},
		{"default over max", func(c *Config) { c.Generation.DefaultCount = 99 }},
		{"bad timezone", func(c *Config) { c.Rotation.Timezone = "Mars/Olympus" }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mod(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}
