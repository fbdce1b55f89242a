package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration, shared by the candidate
// runner and the development stub gateway.
type Config struct {
	// Candidate runner
	GatewayBaseURL string
	RequestTimeout time.Duration
	// WaitingPollInterval is the fallback cadence for re-validating a
	// WAITING session when the start-event stream is unavailable.
	WaitingPollInterval time.Duration
	// LowTimeThreshold is when the countdown switches to the urgency
	// presentation. Presentation-only; does not affect the deadline.
	LowTimeThreshold time.Duration

	LogLevel  string
	LogFormat string

	// Stub gateway
	StubPort    string
	GinMode     string
	TokenSecret string
	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // Ignore error; .env is optional

	return &Config{
		GatewayBaseURL:      getEnv("GATEWAY_BASE_URL", "http://localhost:8080/api/v1"),
		RequestTimeout:      time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,
		WaitingPollInterval: time.Duration(getEnvInt("WAITING_POLL_SECONDS", 5)) * time.Second,
		LowTimeThreshold:    time.Duration(getEnvInt("LOW_TIME_THRESHOLD_SECONDS", 300)) * time.Second,
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "pretty"),
		StubPort:            getEnv("STUB_PORT", "8080"),
		GinMode:             getEnv("GIN_MODE", "debug"),
		TokenSecret:         getEnv("TOKEN_SECRET", "dev-only-stub-secret"),
		AllowedOrigins:      parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
