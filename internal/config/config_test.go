package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.False(t, cfg.Production())
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, time.Hour, cfg.ResetTokenTTL)
	assert.Equal(t, "social.events", cfg.AMQP.Exchange)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("APP_SERVER_ENVIRONMENT", "production")
	t.Setenv("APP_JWT_EXPIRES_HOURS", "2")
	t.Setenv("APP_RESET_TOKEN_TTL_MINUTES", "15")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.Production())
	assert.Equal(t, 2*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 15*time.Minute, cfg.ResetTokenTTL)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  port: \"9090\"\njwt:\n  secret: file-secret\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "file-secret", cfg.JWT.Secret)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, "development", cfg.Server.Environment)
}
