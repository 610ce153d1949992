package app

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AuthzBaseURL    string // Base URL of the authorization server
	ResourceBaseURL string // Base URL of the resource (appointments) API

	OAuthClientID    string // Client ID registered with the authorization server
	OAuthRedirectURL string // Absolute URL of this gateway's /oauth/callback

	Issuer   string // Expected iss claim on access tokens
	Audience string // Expected aud claim on access tokens

	CookieSealKey      string // Base64 encoded 32-byte key sealing the refresh cookie
	LegacyAccessCookie string // Optional: older access cookie name still honoured on reads
	SecureCookies      bool   // Whether session cookies carry the Secure attribute

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
	JWKSRefreshInterval time.Duration // How often the key set is re-fetched (default: 15m)
}

func LoadConfig() Config {
	// A local .env is a dev convenience; absence is not an error
	_ = godotenv.Load()

	cfg := Config{
		AuthzBaseURL:    getEnvOrDefault("AUTHZ_BASE_URL", "http://localhost:8081"),
		ResourceBaseURL: getEnvOrDefault("RESOURCE_BASE_URL", "http://localhost:8082"),

		OAuthClientID:    getEnvOrDefault("OAUTH_CLIENT_ID", "mediplan-web"),
		OAuthRedirectURL: getEnvOrDefault("OAUTH_REDIRECT_URL", "http://localhost:8080/oauth/callback"),

		Issuer:   getEnvOrDefault("AUTH_ISSUER", "mediplan-auth"),
		Audience: getEnvOrDefault("AUTH_AUDIENCE", "mediplan-web"),

		CookieSealKey:      os.Getenv("COOKIE_SEAL_KEY"),
		LegacyAccessCookie: os.Getenv("LEGACY_ACCESS_COOKIE"),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		JWKSRefreshInterval: getEnvDurationOrDefault("JWKS_REFRESH_INTERVAL", 15*time.Minute),
	}

	// Browsers only accept Secure cookies over TLS, so dev defaults to off
	cfg.SecureCookies = getEnvBoolOrDefault("SECURE_COOKIES", cfg.Env == "prod")

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
