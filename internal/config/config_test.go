package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.True(t, cfg.Rate.Enabled)
	assert.Equal(t, 60, cfg.Rate.RequestsPerMinute)
	assert.Equal(t, 60*time.Second, cfg.Rate.Window)
	assert.Equal(t, AlgorithmFixedWindow, cfg.Rate.Algorithm)
	assert.Equal(t, 100, cfg.Concurrency.Max)
	assert.Equal(t, 24*time.Hour, cfg.Stats.TTL)
	assert.Empty(t, cfg.Rate.Routes)
	assert.ErrorIs(t, cfg.RequireUpstream(), ErrInvalid)
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("UPSTREAM_URL", "http://app:3000")
	t.Setenv("RATE_REQUESTS_PER_MINUTE", "30")
	t.Setenv("RATE_ALGORITHM", "TOKEN_BUCKET")
	t.Setenv("TRUST_XFF", "true")
	t.Setenv("RATE_ROUTES", "/api/auth/signup=5, /api/auth/forgot-password=3")

	cfg, err := Load(newViper())
	require.NoError(t, err)

	assert.NoError(t, cfg.RequireUpstream())
	assert.Equal(t, 30, cfg.Rate.RequestsPerMinute)
	assert.Equal(t, AlgorithmTokenBucket, cfg.Rate.Algorithm)
	assert.True(t, cfg.Rate.TrustXFF)
	assert.Equal(t, map[string]int{"/api/auth/signup": 5, "/api/auth/forgot-password": 3}, cfg.Rate.Routes)
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"zero rpm":        {"RATE_REQUESTS_PER_MINUTE": "0"},
		"bad algorithm":   {"RATE_ALGORITHM": "leaky"},
		"negative max":    {"CONCURRENCY_MAX": "-1"},
		"stats w/o redis": {"RATE_STATS_ENABLED": "true"},
		"bad routes":      {"RATE_ROUTES": "signup=5"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load(newViper())
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParseAndFormatRoutes(t *testing.T) {
	routes, err := ParseRoutes("/b=10,,/a=5")
	require.NoError(t, err)
	assert.Equal(t, "/a=5,/b=10", FormatRoutes(routes))

	_, err = ParseRoutes("/a=zero")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoadEnvFiles_DoesNotOverrideProcessEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("RATE_KEY_HEADER=X-Api-Key\nLOG_LEVEL=debug\n"), 0o600))

	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("RATE_KEY_HEADER", "")
	require.NoError(t, os.Unsetenv("RATE_KEY_HEADER"))

	require.NoError(t, LoadEnvFiles(file, filepath.Join(dir, "missing.env")))
	t.Cleanup(func() { _ = os.Unsetenv("RATE_KEY_HEADER") })

	assert.Equal(t, "X-Api-Key", os.Getenv("RATE_KEY_HEADER"))
	assert.Equal(t, "warn", os.Getenv("LOG_LEVEL"))
}
