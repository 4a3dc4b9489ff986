package config

import (
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string // development, production
	LogLevel    string
	DatabaseURL string // Empty means in-memory stores
	RedisURL    string // Empty means in-memory reset tokens
	BaseURL     string // Backend base URL
	FrontendURL string // Frontend base URL (password reset links, OAuth redirects)

	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenSecret string
	RefreshTokenExpiry time.Duration
	ResetTokenExpiry   time.Duration

	CookieSecure   bool
	CookieSameSite http.SameSite

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	MailFrom        string
	MailRatePerSec  float64 // Outbound email budget of the SMTP account
	MailQueueLength int

	SentryDSN string
}

func Load() *Config {
	// Try to load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or defaults")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		BaseURL:     strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		FrontendURL: strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),

		AccessTokenSecret:  getEnv("ACCESS_TOKEN_SECRET", "dev-access-secret"),
		AccessTokenExpiry:  getEnvDuration("ACCESS_TOKEN_EXPIRY", 24*time.Hour),   // 1 day
		RefreshTokenSecret: getEnv("REFRESH_TOKEN_SECRET", "dev-refresh-secret"),
		RefreshTokenExpiry: getEnvDuration("REFRESH_TOKEN_EXPIRY", 240*time.Hour), // 10 days
		ResetTokenExpiry:   getEnvDuration("RESET_TOKEN_EXPIRY", 15*time.Minute),

		CookieSecure:   getEnvBool("COOKIE_SECURE", false),
		CookieSameSite: parseSameSite(getEnv("COOKIE_SAMESITE", "lax")),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleCallbackURL:  getEnv("GOOGLE_CALLBACK_URL", "http://localhost:8080/auth/google/callback"),

		SMTPHost:        getEnv("SMTP_HOST", ""),
		SMTPPort:        getEnvInt("SMTP_PORT", 587),
		SMTPUsername:    getEnv("SMTP_USERNAME", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		MailFrom:        getEnv("MAIL_FROM", "no-reply@localhost"),
		MailRatePerSec:  getEnvFloat("MAIL_RATE_PER_SEC", 1),
		MailQueueLength: getEnvInt("MAIL_QUEUE_LENGTH", 100),

		SentryDSN: getEnv("SENTRY_DSN", ""),
	}
}

// Validate reports settings that would make the token scheme unsafe or unusable.
func (c *Config) Validate() error {
	if c.AccessTokenSecret == "" || c.RefreshTokenSecret == "" {
		return errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET are required")
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return errors.New("access and refresh token secrets must differ")
	}
	if c.AccessTokenExpiry <= 0 || c.RefreshTokenExpiry <= 0 || c.ResetTokenExpiry <= 0 {
		return errors.New("token expiries must be positive")
	}
	if c.MailRatePerSec <= 0 {
		return errors.New("MAIL_RATE_PER_SEC must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// GoogleEnabled reports whether OAuth sign-in is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("15m", "24h") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(value) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
