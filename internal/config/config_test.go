package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialsync/socialsync/internal/errors"
)

const minimalYAML = `
api:
  auth:
    jwt_secret: test-secret
`

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "1", cfg.Version)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 5000, cfg.Server.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "http://localhost:3000", cfg.FrontendURL)
	assert.Equal(t, "data/socialsync.db", cfg.Database.Path)
	assert.Equal(t, 90, cfg.Database.RetentionDays)

	assert.Equal(t, 10*time.Second, cfg.Analytics.UpstreamTimeout)
	assert.Equal(t, 4, cfg.Analytics.Concurrency)
	assert.Equal(t, 5*time.Minute, cfg.Analytics.RefreshSkew)
	assert.True(t, cfg.Analytics.HistoryEnabled())

	assert.Equal(t, 10*time.Minute, cfg.Connect.StateTTL)
	assert.Equal(t, "gemini-2.0-flash", cfg.AI.Gemini.Model)
	assert.Equal(t, "https://generativelanguage.googleapis.com", cfg.AI.Gemini.BaseURL)
	assert.Equal(t, 7*24*time.Hour, cfg.API.Auth.TokenTTL)
	assert.Equal(t, int64(1<<20), cfg.API.MaxBodyBytes)
}

func TestParse_CORSIncludesFrontend(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML + "frontend_url: https://app.example.com/\n"))
	require.NoError(t, err)

	assert.Equal(t, "https://app.example.com", cfg.FrontendURL)
	assert.Equal(t, []string{"https://app.example.com", "http://localhost:3000", "http://127.0.0.1:3000"}, cfg.API.CORS.Origins)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		errMsg string
	}{
		{
			name:   "invalid yaml",
			yaml:   "api: [",
			errMsg: "failed to parse YAML",
		},
		{
			name:   "missing jwt secret",
			yaml:   "server:\n  http_port: 8080\n",
			errMsg: "jwt_secret is required",
		},
		{
			name:   "port out of range",
			yaml:   minimalYAML + "server:\n  http_port: 70000\n",
			errMsg: "http_port must be between 1 and 65535",
		},
		{
			name:   "tls without cert",
			yaml:   minimalYAML + "server:\n  tls:\n    enabled: true\n",
			errMsg: "cert_file is required",
		},
		{
			name:   "telegram without token",
			yaml:   minimalYAML + "telegram:\n  enabled: true\n  chat_id: 42\n",
			errMsg: "bot_token is required",
		},
		{
			name:   "negative analytics timeout",
			yaml:   minimalYAML + "analytics:\n  upstream_timeout: -1s\n",
			errMsg: "must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParse_HistoryCanBeDisabled(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML + "analytics:\n  record_history: false\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Analytics.HistoryEnabled())
}

func TestLoader_LoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_JWT_SECRET", "from-env")
	t.Setenv("TEST_TWITTER_ID", "tw-client")

	path := writeConfig(t, `
api:
  auth:
    jwt_secret: ${TEST_JWT_SECRET}
platforms:
  twitter:
    client_id: ${TEST_TWITTER_ID}
    client_secret: shh
`)

	loader := NewLoader(path)
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.API.Auth.JWTSecret)
	assert.Equal(t, "tw-client", cfg.Platforms.Twitter.ClientID)
	assert.True(t, cfg.Platforms.Twitter.Enabled())
	assert.False(t, cfg.Platforms.LinkedIn.Enabled())
	assert.Same(t, cfg, loader.Get())
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv(EnvDBPath, "/tmp/override.db")
	t.Setenv(EnvUTLS, "true")

	cfg, err := NewLoader(writeConfig(t, minimalYAML)).Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/override.db", cfg.Database.Path)
	assert.True(t, cfg.Upstream.UTLS)
}

func TestLoader_NotFound(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "missing.yaml")).Load()
	require.Error(t, err)

	_, ok := err.(*errors.ErrConfigNotFound)
	assert.True(t, ok, "expected ErrConfigNotFound, got %T", err)
}

func TestLoader_ReloadCallsOnChange(t *testing.T) {
	path := writeConfig(t, minimalYAML)
	loader := NewLoader(path)
	_, err := loader.Load()
	require.NoError(t, err)

	var got string
	loader.SetOnChange(func(c *Config) { got = c.Server.LogLevel })

	require.NoError(t, os.WriteFile(path, []byte(minimalYAML+"server:\n  log_level: debug\n"), 0o600))
	_, err = loader.Reload()
	require.NoError(t, err)
	assert.Equal(t, "debug", got)
}

func TestLoader_WatchReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, minimalYAML)
	loader := NewLoader(path)
	_, err := loader.Load()
	require.NoError(t, err)

	var reloaded atomic.Int32
	loader.SetOnChange(func(c *Config) {
		if c.Server.LogLevel == "warn" {
			reloaded.Store(1)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, loader.Watch(ctx))
	defer loader.StopWatcher()

	require.NoError(t, os.WriteFile(path, []byte(minimalYAML+"server:\n  log_level: warn\n"), 0o600))

	require.Eventually(t, func() bool { return reloaded.Load() == 1 }, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "warn", loader.Get().Server.LogLevel)
}

func TestFromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("FRONTEND_URL", "https://front.example.com")
	t.Setenv("PORT", "8081")
	t.Setenv("META_APP_ID", "meta-id")
	t.Setenv("META_APP_SECRET", "meta-secret")
	t.Setenv("META_REDIRECT_URI", "https://api.example.com/api/auth/facebook/callback")
	t.Setenv("GEMINI_API_KEY", "gem-key")

	cfg, err := FromEnvironment()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.HTTPPort)
	assert.Equal(t, "https://front.example.com", cfg.FrontendURL)
	assert.Equal(t, "meta-id", cfg.Platforms.Facebook.ClientID)
	assert.Equal(t, "meta-secret", cfg.Platforms.Facebook.ClientSecret)
	assert.Equal(t, "gem-key", cfg.AI.Gemini.APIKey)
	assert.Contains(t, cfg.API.CORS.Origins, "https://front.example.com")
	assert.False(t, cfg.Telegram.Enabled)
}

func TestLoadFile(t *testing.T) {
	t.Run("file present", func(t *testing.T) {
		path := writeConfig(t, minimalYAML+"database:\n  retention_days: 90\n")
		cfg, loader, err := LoadFile(path)
		require.NoError(t, err)
		require.NotNil(t, loader)
		assert.Equal(t, path, loader.Path())
		assert.Equal(t, 90, cfg.Database.RetentionDays)
	})

	t.Run("falls back to environment", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "env-secret")
		cfg, loader, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		assert.Nil(t, loader)
		assert.Equal(t, "env-secret", cfg.API.Auth.JWTSecret)
	})

	t.Run("parse errors are returned", func(t *testing.T) {
		path := writeConfig(t, "api: [")
		_, _, err := LoadFile(path)
		require.Error(t, err)
	})
}

func TestFromEnvironment_InvalidPort(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("PORT", "eighty")

	_, err := FromEnvironment()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SOCIALSYNC_DOTENV_PROBE=loaded\n"), 0o600))
	t.Setenv("SOCIALSYNC_DOTENV_PROBE", "")
	os.Unsetenv("SOCIALSYNC_DOTENV_PROBE")

	require.NoError(t, LoadDotEnv(envFile, filepath.Join(dir, "absent.env")))
	assert.Equal(t, "loaded", os.Getenv("SOCIALSYNC_DOTENV_PROBE"))
}

func TestRedacted(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML + "ai:\n  gemini:\n    api_key: gem\n"))
	require.NoError(t, err)

	red := cfg.Redacted()
	assert.Equal(t, "[REDACTED]", red.API.Auth.JWTSecret)
	assert.Equal(t, "[REDACTED]", red.AI.Gemini.APIKey)
	assert.Empty(t, red.Telegram.BotToken)
	assert.Equal(t, "test-secret", cfg.API.Auth.JWTSecret)
	assert.False(t, strings.Contains(red.Platforms.Twitter.ClientSecret, "shh"))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
