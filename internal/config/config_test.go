package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "LOG_LEVEL", "TURN_TIMEOUT", "RECONNECT_GRACE", "REDIS_ADDR", "TOKEN_EXPIRE_TIME", "REDIS_DISABLED"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.Game.TurnTimeout)
	assert.Equal(t, 6*time.Second, cfg.Game.WordDisplayDelay)
	assert.Equal(t, 3*time.Second, cfg.Game.EliminationDisplayDelay)
	assert.Equal(t, 3*time.Second, cfg.Game.DictionaryTimeout)
	assert.Equal(t, 200, cfg.Game.ClassicTargetScore)
	assert.Equal(t, 60*time.Second, cfg.Reconnect)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "wordchain_actions", cfg.QueueName)
	assert.Zero(t, cfg.TicketTTL)
	assert.True(t, cfg.UseRedis)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("TURN_TIMEOUT", "15s")
	t.Setenv("CLASSIC_TARGET_SCORE", "50")
	t.Setenv("TOKEN_EXPIRE_TIME", "2h")
	t.Setenv("REDIS_DISABLED", "1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, logrus.WarnLevel, cfg.LogLevel)
	assert.Equal(t, 15*time.Second, cfg.Game.TurnTimeout)
	assert.Equal(t, 50, cfg.Game.ClassicTargetScore)
	assert.Equal(t, 2*time.Hour, cfg.TicketTTL)
	assert.False(t, cfg.UseRedis)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("TURN_TIMEOUT", "forever")
	t.Setenv("LOG_LEVEL", "loud")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TURN_TIMEOUT")
	assert.Contains(t, err.Error(), "LOG_LEVEL")
}

func TestLoadRejectsInvertedAIRange(t *testing.T) {
	t.Setenv("AI_THINK_MIN", "5s")
	t.Setenv("AI_THINK_MAX", "1s")
	_, err := Load()
	assert.Error(t, err)
}
