package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server settings
	ServerAddr string
	BaseURL    string // Used as the JWT issuer

	// Signing key (RSA, PEM). When empty an ephemeral key pair is
	// generated at startup; fine for development, not for production.
	PrivateKeyPath string

	// Credential lifetimes
	AuthCodeExpiration     time.Duration // Authorization code TTL (default: 90s)
	AccessTokenExpiration  time.Duration // Access token TTL (default: 5m)
	RefreshTokenExpiration time.Duration // Refresh token TTL (default: 30m)

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string // Database connection string (DSN or path)

	// PKCE enforcement
	PKCERequired bool // Require PKCE on every authorization request

	// Consent
	ConsentRemember bool // Skip the consent step when full consent is already held

	// Metrics
	MetricsEnabled bool

	// Proxies whose X-Forwarded-For headers may be trusted when
	// resolving client IPs for rate limiting
	TrustedProxies []string

	// JWKS response cacheability, in seconds
	JWKSCacheMaxAge int

	// Rate limiting (token + authorize endpoints)
	RateLimitEnabled bool
	RateLimitRate    string // ulule/limiter formatted rate, e.g. "30-M"

	// Background sweeper for expired codes and dead token rows
	SweepInterval time.Duration
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	// Determine database driver and DSN
	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", getEnv("DATABASE_PATH", "oauth.db"))
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		ServerAddr:     getEnv("SERVER_ADDR", ":8080"),
		BaseURL:        getEnv("BASE_URL", "http://localhost:8080"),
		PrivateKeyPath: getEnv("PRIVATE_KEY_PATH", ""),

		AuthCodeExpiration:     getEnvDuration("AUTH_CODE_EXPIRATION", 90*time.Second),
		AccessTokenExpiration:  getEnvDuration("ACCESS_TOKEN_EXPIRATION", 5*time.Minute),
		RefreshTokenExpiration: getEnvDuration("REFRESH_TOKEN_EXPIRATION", 30*time.Minute),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		PKCERequired:    getEnvBool("PKCE_REQUIRED", false),
		ConsentRemember: getEnvBool("CONSENT_REMEMBER", true),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),

		TrustedProxies:  getEnvSlice("TRUSTED_PROXIES", nil),
		JWKSCacheMaxAge: getEnvInt("JWKS_CACHE_MAX_AGE", 3600),

		RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitRate:    getEnv("RATE_LIMIT_RATE", "60-M"),

		SweepInterval: getEnvDuration("SWEEP_INTERVAL", 10*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := []string{}
		for _, part := range splitAndTrim(value, ",") {
			if part != "" {
				parts = append(parts, part)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}

func splitAndTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
