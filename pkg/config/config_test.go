package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://demo.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "websocket", cfg.RealtimeMode)
	assert.Equal(t, "file", cfg.LocalStore)
	assert.Equal(t, "supabase", cfg.StorageDriver)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.MetricsEnabled)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	setRequired(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
realtime_mode: poll
poll_interval: 2s
local_store: redis
redis_url: redis://localhost:6379/0
rate_limit_rps: 5
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")
	t.Setenv("METRICS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "poll", cfg.RealtimeMode)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, "redis", cfg.LocalStore)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, 5.0, cfg.RateLimitRPS)
	assert.False(t, cfg.MetricsEnabled)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing supabase url", map[string]string{"SUPABASE_ANON_KEY": "anon"}},
		{"unknown store", map[string]string{"LOCAL_STORE": "sqlite"}},
		{"s3 without bucket", map[string]string{"STORAGE_DRIVER": "s3"}},
		{"mongo without uri", map[string]string{"LOCAL_STORE": "mongo"}},
		{"bad realtime mode", map[string]string{"REALTIME_MODE": "sse"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := tt.env["SUPABASE_ANON_KEY"]; !ok {
				setRequired(t)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_BadConfigFile(t *testing.T) {
	setRequired(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitStores_NoConnectionForFileStore(t *testing.T) {
	s, err := InitStores(&Config{LocalStore: "file"})
	require.NoError(t, err)
	assert.Nil(t, s.Postgres)
	assert.Nil(t, s.Mongo)
	assert.Nil(t, s.Redis)
	s.CloseStores()
}
