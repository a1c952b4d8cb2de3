package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the MediGuard analysis plane. Loaded
// once in main and passed explicitly to every component that needs it.
type Config struct {
	Port       int
	Version    string
	Completion CompletionConfig
	Database   DatabaseConfig
	Telemetry  TelemetryConfig
}

type CompletionConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type DatabaseConfig struct {
	// URL empty = in-memory store (local dev, tests).
	URL string
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:    envInt("MEDIGUARD_PORT", 8080),
		Version: envStr("MEDIGUARD_VERSION", "0.2.0"),
		Completion: CompletionConfig{
			APIKey:      envStr("MEDIGUARD_COMPLETION_API_KEY", ""),
			BaseURL:     envStr("MEDIGUARD_COMPLETION_BASE_URL", ""),
			Model:       envStr("MEDIGUARD_COMPLETION_MODEL", "gpt-4o-mini"),
			Temperature: envFloat("MEDIGUARD_COMPLETION_TEMPERATURE", 0.7),
			Timeout:     envDuration("MEDIGUARD_COMPLETION_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			URL: envStr("MEDIGUARD_DATABASE_URL", ""),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", true),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "mediguard-driftai"),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
