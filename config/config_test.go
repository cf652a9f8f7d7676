package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "llama-3.1-8b-instant", cfg.Groq.Model)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.Groq.BaseURL)
	assert.InDelta(t, 0.7, cfg.Groq.Temperature, 0.0001)
	assert.Equal(t, 300, cfg.Groq.MaxTokens)
	assert.Equal(t, 60*time.Second, cfg.Groq.RequestTimeout)
	assert.Equal(t, 3, cfg.Quota.DailyLimit)
	assert.Equal(t, StorageBackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, 30*time.Second, cfg.HTTP.HealthCacheTTL)
	assert.Equal(t, 10000, cfg.Sessions.MaxActive)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("quota:\n  daily_limit: 5\nstorage:\n  backend: memory\n"), 0o600))
	t.Setenv("QUOTA_DAILY_LIMIT", "7")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Quota.DailyLimit)
	assert.Equal(t, StorageBackendMemory, cfg.Storage.Backend)
}

func TestLoadConfig_MissingFileFallsBackToEnv(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk_test")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "gsk_test", cfg.Groq.APIKey)
}

func TestLoadConfig_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "etcd")

	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "etcd")
}

func TestLoadConfig_RejectsNonPositiveMaxSessions(t *testing.T) {
	t.Setenv("SESSIONS_MAX_ACTIVE", "0")

	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestQuotaLocation(t *testing.T) {
	loc, err := Quota{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = Quota{Timezone: "Asia/Kolkata"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())

	_, err = Quota{Timezone: "Mars/Olympus"}.Location()
	require.Error(t, err)
}
