package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the resolved service configuration. It is built once at
// startup and read-only afterwards; pass it by reference, do not mutate it.
type Config struct {
	// Server configuration
	Port string
	Mode string

	// Database configuration
	DatabaseURL string

	// Redis configuration; empty means no Redis, rate limiting falls back
	// to the in-memory limiter.
	RedisURL string

	// App Store configuration
	AppStoreSharedSecret string
	AppleRequestTimeout  time.Duration

	// Rate limit for the verify endpoint, per project and client IP.
	RateLimitPerMinute int

	// Brevo email configuration for tamper alerts
	BrevoAPIKey    string
	BrevoFromEmail string
	BrevoFromName  string

	ServiceName string
}

// Load reads the environment (and .env file, when present) into a Config.
// APP_STORE_SHARED_SECRET is the fallback shared secret, used only when a
// project carries no secret of its own and the caller sent none.
func Load() *Config {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Ignore error if .env file doesn't exist
	}

	return &Config{
		Port:                 getEnv("PORT", "8080"),
		Mode:                 getEnv("GIN_MODE", "debug"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RedisURL:             getEnv("REDIS_URL", ""),
		AppStoreSharedSecret: getEnv("APP_STORE_SHARED_SECRET", ""),
		AppleRequestTimeout:  getEnvDuration("APPLE_REQUEST_TIMEOUT", 30*time.Second),
		RateLimitPerMinute:   getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		BrevoAPIKey:          getEnv("BREVO_API_KEY", ""),
		BrevoFromEmail:       getEnv("BREVO_FROM_EMAIL", ""),
		BrevoFromName:        getEnv("BREVO_FROM_NAME", "Receipt Verification"),
		ServiceName:          getEnv("SERVICE_NAME", "IAP Verification Service"),
	}
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
