package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPostgresDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_USER", "app")
	t.Setenv("DATABASE_PASSWORD", "secret")
	t.Setenv("DATABASE_NAME", "stylize")
	t.Setenv("QUOTA_TIMEZONE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, STORE_POSTGRES, cfg.StoreBackend)
	assert.Equal(t, "postgres://app:secret@db:5432/stylize", cfg.DatabaseURL)
	assert.Equal(t, time.UTC, cfg.QuotaLocation)
	assert.Equal(t, time.Hour, cfg.TokenExpiry)
	assert.False(t, cfg.SupabaseAuth)
}

func TestLoadSupabase(t *testing.T) {
	t.Setenv("STORE_BACKEND", STORE_SUPABASE)
	t.Setenv("SUPABASE_URL", "https://abc.supabase.co")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "key")
	t.Setenv("QUOTA_TIMEZONE", "Asia/Shanghai")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Shanghai", cfg.QuotaLocation.String())
	assert.True(t, cfg.SupabaseAuth)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("STORE_BACKEND", "mysql")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("STORE_BACKEND", STORE_SUPABASE)
	t.Setenv("SUPABASE_URL", "")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("STORE_BACKEND", STORE_POSTGRES)
	t.Setenv("DATABASE_URL", "postgres://localhost/x")
	t.Setenv("QUOTA_TIMEZONE", "Mars/Olympus")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("QUOTA_TIMEZONE", "UTC")
	t.Setenv("TASK_TIMEOUT", "soon")
	_, err = Load()
	assert.Error(t, err)
}
