package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9000"
redis:
  addr: localhost:6379
quiz:
  ttl: 90m
  maxParticipants: 25
  timeLimit: 20
  defaultQuestionCount: 5
  maxQuestionCount: 20
`), 0o600))
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 25, cfg.Quiz.MaxParticipants)
	assert.Equal(t, 90*time.Minute, TTLDuration(cfg.Quiz.TTL, time.Hour))
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("PORT", "7070")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Server.Port)
}

func TestValidateRejectsBadValues(t *testing.T) {
	var cfg Config
	cfg.Quiz.TTL = "soon"
	cfg.Quiz.MaxParticipants = -1
	cfg.Quiz.DefaultQuestionCount = 30
	cfg.Quiz.MaxQuestionCount = 10

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quiz.ttl")
	assert.Contains(t, err.Error(), "maxParticipants")
	assert.Contains(t, err.Error(), "exceeds")
}

func TestTTLDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, TTLDuration("", time.Minute))
	assert.Equal(t, time.Minute, TTLDuration("nope", time.Minute))
	assert.Equal(t, 5*time.Second, TTLDuration("5s", time.Minute))
}
