package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.RateLimit.MaxRequests)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.Window())
	assert.Equal(t, 24*time.Hour, cfg.Session.MaxAge())
	assert.Equal(t, 5, cfg.Lockout.MaxAttempts)
	assert.Equal(t, 30*time.Minute, cfg.Lockout.Duration())
	assert.Equal(t, 8, cfg.Password.MinLength)
	assert.False(t, cfg.Password.RequireUppercase)
	assert.Equal(t, int64(5242880), cfg.Upload.MaxFileSize)
	assert.Equal(t, []string{"jpg", "jpeg", "png", "pdf", "doc", "docx"}, cfg.Upload.AllowedTypes)
	assert.Equal(t, "noreply@yourcrm.com", cfg.Email.From)
	assert.Equal(t, 587, cfg.Email.SMTPPort)
	assert.Equal(t, "*/15 * * * *", cfg.Worker.FollowUpCron)
	assert.False(t, cfg.Server.TrustProxyHeaders)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "5")
	t.Setenv("RATE_LIMIT_WINDOW_MS", "1000")
	t.Setenv("PASSWORD_REQUIRE_SYMBOLS", "true")
	t.Setenv("ALLOWED_FILE_TYPES", "PDF, png")
	t.Setenv("DATABASE_URL", "postgres://crm@db/crm")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.RateLimit.MaxRequests)
	assert.Equal(t, time.Second, cfg.RateLimit.Window())
	assert.True(t, cfg.Password.RequireSymbols)
	assert.Equal(t, []string{"pdf", "png"}, cfg.Upload.AllowedTypes)
	assert.Equal(t, "postgres://crm@db/crm", cfg.Database.DSN())
}

func TestDatabaseConfig_DSNFromParts(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=n sslmode=disable", d.DSN())
}
