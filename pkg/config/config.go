package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the leverage core.
type Config struct {
	Port string

	// Database
	DBPath string

	// Auth
	JWTSecret string

	// Presets
	PresetsPath string

	// History browsing
	HistoryDefaultLimit int
	HistoryMaxLimit     int

	// Rate limiting (per client IP)
	RateLimitPerSecond float64
	RateLimitBurst     int

	// Localization
	Language string // "en" or "zh"
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	// Database path: prefer DB_PATH, then DATABASE_PATH for backward compatibility.
	dbPath := getEnv("DB_PATH", "")
	if dbPath == "" {
		dbPath = getEnv("DATABASE_PATH", "./data/leverage.db")
	}

	return &Config{
		Port:                getEnv("PORT", "8080"),
		DBPath:              dbPath,
		JWTSecret:           getEnv("JWT_SECRET", "dev-secret"),
		PresetsPath:         getEnv("PRESETS_PATH", "presets.yaml"),
		HistoryDefaultLimit: getEnvInt("HISTORY_DEFAULT_LIMIT", 50),
		HistoryMaxLimit:     getEnvInt("HISTORY_MAX_LIMIT", 500),
		RateLimitPerSecond:  getEnvFloat("RATE_LIMIT_PER_SECOND", 20),
		RateLimitBurst:      getEnvInt("RATE_LIMIT_BURST", 50),
		Language:            getEnv("LANGUAGE", "en"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
