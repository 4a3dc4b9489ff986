package config

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.AccessTokenExpiry)
	assert.Equal(t, 240*time.Hour, cfg.RefreshTokenExpiry)
	assert.Equal(t, 15*time.Minute, cfg.ResetTokenExpiry)
	assert.Equal(t, http.SameSiteLaxMode, cfg.CookieSameSite)
	assert.False(t, cfg.GoogleEnabled())
	require.NoError(t, cfg.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ACCESS_TOKEN_EXPIRY", "90")
	t.Setenv("REFRESH_TOKEN_EXPIRY", "48h")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("COOKIE_SAMESITE", "None")
	t.Setenv("FRONTEND_URL", "https://tiny.example/")
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 90*time.Second, cfg.AccessTokenExpiry)
	assert.Equal(t, 48*time.Hour, cfg.RefreshTokenExpiry)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, http.SameSiteNoneMode, cfg.CookieSameSite)
	assert.Equal(t, "https://tiny.example", cfg.FrontendURL)
	assert.True(t, cfg.GoogleEnabled())
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("SMTP_PORT", "not-a-port")
	t.Setenv("RESET_TOKEN_EXPIRY", "soon")

	cfg := Load()

	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, 15*time.Minute, cfg.ResetTokenExpiry)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			AccessTokenSecret:  "a",
			RefreshTokenSecret: "r",
			AccessTokenExpiry:  time.Hour,
			RefreshTokenExpiry: time.Hour,
			ResetTokenExpiry:   time.Minute,
			MailRatePerSec:     1,
		}
	}

	require.NoError(t, base().Validate())

	same := base()
	same.RefreshTokenSecret = same.AccessTokenSecret
	assert.Error(t, same.Validate())

	missing := base()
	missing.AccessTokenSecret = ""
	assert.Error(t, missing.Validate())

	zero := base()
	zero.ResetTokenExpiry = 0
	assert.Error(t, zero.Validate())
}
