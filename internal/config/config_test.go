package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("API_BASE_URL", "https://market.example.com/")
	t.Setenv("SESSION_PATH", "/tmp/session.yaml")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://market.example.com", cfg.APIBaseURL)
	assert.Equal(t, "wss://market.example.com/api/ws", cfg.WSURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "client", cfg.Role)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 5*time.Second, cfg.EchoWindow)
	assert.Equal(t, int64(10), cfg.RateLimitLimit)
	assert.Equal(t, time.Minute, cfg.RateLimitPeriod)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_ExplicitWSURLAndRole(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://localhost:8080")
	t.Setenv("WS_URL", "ws://push.local/socket")
	t.Setenv("CLIENT_ROLE", "freelancer")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ws://push.local/socket", cfg.WSURL)
	assert.Equal(t, "freelancer", cfg.Role)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://localhost:8080")

	t.Setenv("CLIENT_ROLE", "admin")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("CLIENT_ROLE", "client")
	t.Setenv("ECHO_WINDOW", "soon")
	_, err = Load()
	assert.Error(t, err)
}

func TestDeriveWSURL(t *testing.T) {
	u, err := deriveWSURL("http://localhost:8080/base")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/base/api/ws", u)
}
