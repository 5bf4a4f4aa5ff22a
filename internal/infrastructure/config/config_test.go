package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, "./build", cfg.StaticDir)
	assert.Equal(t, "pyramid_user", cfg.Session.CacheKey)
	assert.Equal(t, "remote", cfg.Session.CredentialMode)
	assert.True(t, cfg.Session.DemoAccountsEnabled)
	assert.False(t, cfg.Session.StaleGuard)
	assert.Zero(t, cfg.Session.StampWorkers)
	assert.Equal(t, time.Hour, cfg.Identity.TokenTTL)
	assert.NotEmpty(t, cfg.Session.CacheDir)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"PORT":                  "8080",
		"STATIC_DIR":            "/srv/www",
		"ENV":                   "production",
		"DEMO_ACCOUNTS_ENABLED": "false",
		"SESSION_CACHE_DIR":     "/tmp/cache",
		"TOKEN_TTL":             "15m",
		"PROFILE_BACKEND":       "postgres",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "/srv/www", cfg.StaticDir)
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.Session.DemoAccountsEnabled)
	assert.Equal(t, "/tmp/cache", cfg.Session.CacheDir)
	assert.Equal(t, 15*time.Minute, cfg.Identity.TokenTTL)
	assert.Equal(t, "postgres", cfg.Profiles.Backend)
}

func TestLoad_BadDuration(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{"TOKEN_TTL": "soon"}))
	assert.Error(t, err)
}
