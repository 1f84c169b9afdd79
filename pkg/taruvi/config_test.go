package taruvi

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "http://localhost:8000", cfg.APIURL)
	assert.Equal(t, ModeBlocking, cfg.Mode)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 10, cfg.PoolSize)
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		cfg := DefaultConfig()
		cfg.AppSlug = "crm"
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults with app slug", func(c *Config) {}, true},
		{"missing app slug", func(c *Config) { c.AppSlug = "" }, false},
		{"missing api url", func(c *Config) { c.APIURL = "" }, false},
		{"malformed api url", func(c *Config) { c.APIURL = "not a url" }, false},
		{"unknown mode", func(c *Config) { c.Mode = "eager" }, false},
		{"timeout below range", func(c *Config) { c.Timeout = 500 * time.Millisecond }, false},
		{"timeout above range", func(c *Config) { c.Timeout = 301 * time.Second }, false},
		{"timeout at upper bound", func(c *Config) { c.Timeout = 300 * time.Second }, true},
		{"retries above range", func(c *Config) { c.MaxRetries = 11 }, false},
		{"retries at upper bound", func(c *Config) { c.MaxRetries = 10 }, true},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, false},
		{"zero pool", func(c *Config) { c.PoolSize = 0 }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrConfiguration))
			}
		})
	}
}

func TestConfigEnvOverlay(t *testing.T) {
	t.Setenv("TARUVI_API_URL", "https://env.example.com")
	t.Setenv("TARUVI_APP_SLUG", "env-app")
	t.Setenv("TARUVI_SITE_SLUG", "env-site")
	t.Setenv("TARUVI_MODE", "non-blocking")
	t.Setenv("TARUVI_TIMEOUT", "60")
	t.Setenv("TARUVI_MAX_RETRIES", "5")
	t.Setenv("TARUVI_DEBUG", "true")

	var cfg Config
	cfg.applyEnv()

	assert.Equal(t, "https://env.example.com", cfg.APIURL)
	assert.Equal(t, "env-app", cfg.AppSlug)
	assert.Equal(t, "env-site", cfg.SiteSlug)
	assert.Equal(t, ModeNonBlocking, cfg.Mode)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.True(t, cfg.Debug)
}

func TestNewClientEnvOverridesDefaults(t *testing.T) {
	t.Setenv("TARUVI_API_URL", "https://env.example.com")
	t.Setenv("TARUVI_APP_SLUG", "env-app")
	t.Setenv("TARUVI_MODE", "non-blocking")
	t.Setenv("TARUVI_TIMEOUT", "60")
	t.Setenv("TARUVI_MAX_RETRIES", "7")

	client, err := NewClient(Config{})
	require.NoError(t, err)

	cfg := client.Config()
	assert.Equal(t, "https://env.example.com", cfg.APIURL)
	assert.Equal(t, ModeNonBlocking, cfg.Mode)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, 7, cfg.MaxRetries)
}

func TestNewClientEnvDisablesRetries(t *testing.T) {
	t.Setenv("TARUVI_APP_SLUG", "env-app")
	t.Setenv("TARUVI_MAX_RETRIES", "0")

	client, err := NewClient(Config{})
	require.NoError(t, err)
	assert.Equal(t, 0, client.Config().MaxRetries)
}

func TestConfigExplicitWinsOverEnv(t *testing.T) {
	t.Setenv("TARUVI_API_URL", "https://env.example.com")
	t.Setenv("TARUVI_APP_SLUG", "env-app")

	client, err := NewClient(Config{
		APIURL:  "https://explicit.example.com",
		AppSlug: "explicit-app",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://explicit.example.com", client.Config().APIURL)
	assert.Equal(t, "explicit-app", client.Config().AppSlug)
}

func TestConfigRuntimeOverlay(t *testing.T) {
	t.Setenv("TARUVI_FUNCTION_RUNTIME", "true")
	t.Setenv("TARUVI_API_URL", "https://env.example.com")
	t.Setenv("TARUVI_APP_SLUG", "env-app")
	t.Setenv("TARUVI_FUNCTION_KEY", "fn-key-123")
	t.Setenv("TARUVI_EXECUTION_ID", "exec-1")

	client, err := NewClient(Config{})
	require.NoError(t, err)

	// The sandbox function key seeds the credential.
	assert.True(t, client.IsAuthenticated())
	assert.Equal(t, "env-app", client.Config().AppSlug)
}

func TestNewClientInvalidConfig(t *testing.T) {
	_, err := NewClient(Config{APIURL: "https://api.example.com"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
}
