package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APOLLO_PROVIDER", "APOLLO_API_KEY", "APOLLO_BASE_URL",
		"GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_BASE_URL",
		"LOG_LEVEL", "LOG_FILE", "LOG_CONSOLE",
		"LISTEN_ADDR", "REDIS_ADDR", "REDIS_DB", "SERVER_LIMIT_MAX",
		"REQUEST_TIMEOUT", "RATE_LIMIT_RPS",
	} {
		t.Setenv(k, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ProviderApollo, cfg.Provider)
	assert.Equal(t, 20*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "https://api.apollo.io", cfg.Apollo.BaseURL)
	assert.Zero(t, cfg.RateLimitRPS)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Empty(t, cfg.Server.RedisAddr)
	assert.NoError(t, cfg.Validate())
	assert.ErrorIs(t, cfg.RequireCredential(), ErrMissingAPIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{name: "unknown provider", mutate: func(c *Config) { c.Provider = "clearbit" }, want: ErrUnknownProvider},
		{name: "zero timeout", mutate: func(c *Config) { c.RequestTimeout = 0 }, want: ErrInvalidTimeout},
		{name: "negative rps", mutate: func(c *Config) { c.RateLimitRPS = -1 }, want: ErrInvalidRateLimit},
		{name: "negative limit", mutate: func(c *Config) { c.Server.LimitMax = -1 }, want: ErrInvalidServerLimit},
		{name: "gemini ok", mutate: func(c *Config) { c.Provider = ProviderGemini }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRequireCredential_FollowsProvider(t *testing.T) {
	cfg := Default()
	cfg.Apollo.APIKey = "apollo-key"
	assert.NoError(t, cfg.RequireCredential())
	assert.Equal(t, "apollo-key", cfg.APIKey())

	cfg.Provider = ProviderGemini
	assert.ErrorIs(t, cfg.RequireCredential(), ErrMissingAPIKey)

	cfg.Gemini.APIKey = "  "
	assert.ErrorIs(t, cfg.RequireCredential(), ErrMissingAPIKey)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider: apollo
request_timeout: 5s
rate_limit_rps: 2
apollo:
  api_key: from-file
server:
  limit_window: 30s
`), 0o600))

	cfg, loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, loaded)
	assert.Equal(t, "from-file", cfg.Apollo.APIKey)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2.0, cfg.RateLimitRPS)
	assert.Equal(t, 30*time.Second, cfg.Server.LimitWindow)
	// Untouched keys keep their defaults.
	assert.Equal(t, "https://api.apollo.io", cfg.Apollo.BaseURL)
	assert.Equal(t, DefaultServerLimitMax, cfg.Server.LimitMax)

	t.Setenv("APOLLO_API_KEY", "from-env")
	t.Setenv("REQUEST_TIMEOUT", "7s")
	cfg, _, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Apollo.APIKey)
	assert.Equal(t, 7*time.Second, cfg.RequestTimeout)
}

func TestLoad_InvalidEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("RATE_LIMIT_RPS", "fast")

	_, _, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RATE_LIMIT_RPS")
}

func TestFindFile(t *testing.T) {
	t.Run("explicit missing", func(t *testing.T) {
		_, err := FindFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.True(t, errors.Is(err, ErrConfigNotFound))
	})

	t.Run("working directory", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		require.NoError(t, os.WriteFile(DefaultConfigFile, []byte("provider: gemini\n"), 0o600))

		got, err := FindFile("")
		require.NoError(t, err)
		assert.Equal(t, DefaultConfigFile, got)
	})
}

func TestTemplate_ParsesAndValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, yaml.Unmarshal(Template(), &cfg))
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, ProviderApollo, cfg.Provider)
	assert.Equal(t, time.Minute, cfg.Server.LimitWindow)
}

func TestWriteTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, WriteTemplate(path, false))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Template(), b)

	assert.Error(t, WriteTemplate(path, false))
	assert.NoError(t, WriteTemplate(path, true))
}
