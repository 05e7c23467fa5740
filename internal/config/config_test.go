package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMemoryBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("LOCK_WAIT", "2")
	t.Setenv("SHUTDOWN_TIMEOUT", "1500ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("REDIS_URL", "redis://user:pw@cache:6380")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, 2*time.Second, cfg.LockWait)
	assert.Equal(t, 1500*time.Millisecond, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "cache:6380", cfg.RedisAddr)
	assert.Equal(t, "user", cfg.RedisUsername)
	assert.Equal(t, "pw", cfg.RedisPassword)
}

func TestLoadRequiresDSNForPostgres(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("JWT_SECRET", "s3cret")

	_, err := Load()
	assert.EqualError(t, err, "POSTGRES_DSN is required")
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.EqualError(t, err, "JWT_SECRET is required")
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("JWT_SECRET", "s3cret")

	_, err := Load()
	assert.Error(t, err)
}
