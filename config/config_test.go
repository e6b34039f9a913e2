package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Mode)
	assert.Equal(t, time.Hour, cfg.Database.MySQLMaxLife)
	assert.Equal(t, 10, cfg.Social.RankingSize)
	assert.Equal(t, time.Minute, cfg.Social.RankingWarmInterval)
	assert.Equal(t, 720*time.Hour, cfg.Social.NotificationTTL)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), cfg.Social.EarlyAdopterCutoff.UTC())
	assert.Equal(t, 200*time.Millisecond, cfg.Notify.RetryInitialWait)
	assert.Equal(t, 5*time.Second, cfg.Catalog.Timeout)
	assert.Empty(t, cfg.Catalog.APIKey)
	assert.Empty(t, cfg.Server.AdminKey)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  admin_key: secret
  admin_ips: ["127.0.0.1"]
security:
  jwt_secret: s3cr3t
  allowed_origins:
    - https://cinecircle.example
social:
  founder_user_id: 7
  early_adopter_cutoff: "2024-01-15T00:00:00Z"
  ranking_size: 5
notify:
  flush_interval: 250ms
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Server.AdminKey)
	assert.Equal(t, []string{"127.0.0.1"}, cfg.Server.AdminIPs)
	assert.Equal(t, "s3cr3t", cfg.Security.JWTSecret)
	assert.Equal(t, []string{"https://cinecircle.example"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, int64(7), cfg.Social.FounderUserID)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), cfg.Social.EarlyAdopterCutoff.UTC())
	assert.Equal(t, 5, cfg.Social.RankingSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Notify.FlushInterval)
	// Unset keys keep their defaults.
	assert.Equal(t, "sqlite", cfg.Database.Mode)
	assert.Equal(t, 100, cfg.Notify.BatchSize)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("CINECIRCLE_SERVER_PORT", "7070")
	t.Setenv("CINECIRCLE_CATALOG_API_KEY", "from-env")
	t.Setenv("CINECIRCLE_SOCIAL_RANKING_WARM_INTERVAL", "90s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Catalog.APIKey)
	assert.Equal(t, 90*time.Second, cfg.Social.RankingWarmInterval)
}

func TestDefault_EnvOverride(t *testing.T) {
	t.Setenv("CINECIRCLE_SECURITY_JWT_SECRET", "env-secret")
	cfg, err := Default()
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.Security.JWTSecret)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeConfig(t, "social:\n  ranking_warm_interval: soon\n")
	_, err := Load(path)
	assert.Error(t, err)
}
