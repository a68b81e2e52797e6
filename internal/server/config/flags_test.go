package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	err := parseFlags(cfg, []string{
		"-a", "127.0.0.1:9090",
		"-s", "memory",
		"-access-secret", "as", "-access-ttl", "5m",
		"-refresh-secret", "rs", "-refresh-ttl", "7d",
		"-cookie-secure=false",
		"-c", "ignored.json",
		"-x", "unknown",
	})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.HTTPAddr)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, "as", cfg.AccessTokenSecret)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, "rs", cfg.RefreshTokenSecret)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, ":50051", cfg.GRPCAddr, "untouched")
}

func TestParseFlags_BadDuration(t *testing.T) {
	cfg := &Config{}
	err := parseFlags(cfg, []string{"-access-ttl", "nope"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	cfg, err := load([]string{"-access-ttl", "30m"}, envOf(tokenEnv))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
}
