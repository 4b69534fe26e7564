package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_defaults(t *testing.T) {
	t.Setenv("ENV", "")

	conf := NewConfig()
	assert.Equal(t, "DEV", conf.Env)
	assert.True(t, conf.Debug)
	assert.False(t, conf.TestMode)
	assert.NotEmpty(t, conf.WorkDir)

	assert.Equal(t, ":8000", conf.Server.Address)
	assert.Equal(t, ":4000", conf.Server.DebugHost)
	assert.Equal(t, 7*24*time.Hour, conf.Server.JWTExpirationDelta)

	assert.True(t, conf.Database.InMemory())

	assert.Empty(t, conf.Realtime.AllowedOrigins)
	conf.Realtime.AllowedOrigins = nil
	assert.Equal(t, RealtimeConfig{
		PingInterval:     30 * time.Second,
		WriteWait:        10 * time.Second,
		MaxMessageSize:   64 * 1024,
		SendBufferSize:   256,
		SessionCacheSize: 1024,
		SessionCacheTTL:  time.Minute,
	}, conf.Realtime)
}

func TestNewConfig_env(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("TEST_DEBUG", "false")
	t.Setenv("TEST_DATABASE_HOST", "db")
	t.Setenv("TEST_DATABASE_PORT", "5433")
	t.Setenv("TEST_REALTIME_PINGINTERVAL", "15s")
	t.Setenv("TEST_REALTIME_SENDBUFFERSIZE", "32")

	conf := NewConfig()
	assert.Equal(t, "TEST", conf.Env)
	assert.True(t, conf.TestMode)
	assert.False(t, conf.Debug)
	assert.False(t, conf.Database.InMemory())
	assert.Equal(t, "db:5433", conf.Database.Address())
	assert.Equal(t, 15*time.Second, conf.Realtime.PingInterval)
	assert.Equal(t, 32, conf.Realtime.SendBufferSize)
	assert.Equal(t, "Masomo (develop) env=TEST debug=false", conf.String())
}
