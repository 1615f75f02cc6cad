package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveboard/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg := config.Load()
	require.NotNil(t, cfg)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 4096, cfg.WebSocket.ReadBufferSize)
	assert.Equal(t, 5*time.Second, cfg.WebSocket.WriteTimeout)
	assert.Equal(t, 256, cfg.Board.BroadcastBufferSize)
	assert.Equal(t, 10*time.Minute, cfg.Board.SessionIdleTimeout)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("WS_WRITE_TIMEOUT", "2s")
	t.Setenv("BOARD_BROADCAST_BUFFER_SIZE", "64")
	t.Setenv("REDIS_ENABLED", "true")

	cfg := config.Load()
	assert.Equal(t, 2*time.Second, cfg.WebSocket.WriteTimeout)
	assert.Equal(t, 64, cfg.Board.BroadcastBufferSize)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadBareSecondsDuration(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("WS_WRITE_TIMEOUT", "30")

	cfg := config.Load()
	assert.Equal(t, 30*time.Second, cfg.WebSocket.WriteTimeout)
}
