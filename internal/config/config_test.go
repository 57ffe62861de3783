package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-tolls/internal/environment"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("RYDORA_DEV_URL", "https://dev.example.com/api")
	t.Setenv("FUNCTIONS_CUSTOMHANDLER_PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, environment.Development, cfg.DefaultEnvironment)
	assert.Equal(t, 30*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, 8*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, 500, cfg.MaxPageSize)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
	assert.Equal(t, "https://dev.example.com/api", cfg.Environments()[environment.Development])
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("RYDORA_PROD_URL", "https://prod.example.com")
	t.Setenv("DEFAULT_ENVIRONMENT", "prod")
	t.Setenv("PORT", "9000")
	t.Setenv("FUNCTIONS_CUSTOMHANDLER_PORT", "7071")
	t.Setenv("PAGE_SIZE", "50")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7071", cfg.Port)
	assert.Equal(t, environment.Production, cfg.DefaultEnvironment)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, 30*time.Second, cfg.RateLimitWindow)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("no upstream", func(t *testing.T) {
		t.Setenv("RYDORA_DEV_URL", "")
		t.Setenv("RYDORA_PROD_URL", "")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("bad environment", func(t *testing.T) {
		t.Setenv("RYDORA_DEV_URL", "https://dev.example.com")
		t.Setenv("DEFAULT_ENVIRONMENT", "staging")
		_, err := Load()
		assert.ErrorIs(t, err, environment.ErrUnknownEnvironment)
	})
	t.Run("bad page size", func(t *testing.T) {
		t.Setenv("RYDORA_DEV_URL", "https://dev.example.com")
		t.Setenv("PAGE_SIZE", "1000")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoadDotEnv(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("FLEET_TOLLS_DOTENV_TEST=loaded\n"), 0o600))
	t.Setenv("FLEET_TOLLS_DOTENV_TEST", "")
	require.NoError(t, os.Unsetenv("FLEET_TOLLS_DOTENV_TEST"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("FLEET_TOLLS_DOTENV_TEST"))
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug", "text")
	require.NoError(t, err)
	assert.Equal(t, log.DebugLevel, logger.GetLevel())
	assert.IsType(t, &log.TextFormatter{}, logger.Formatter)

	logger, err = NewLogger("warn", "")
	require.NoError(t, err)
	assert.IsType(t, &log.JSONFormatter{}, logger.Formatter)

	_, err = NewLogger("loud", "json")
	assert.Error(t, err)
	_, err = NewLogger("info", "xml")
	assert.Error(t, err)
}
