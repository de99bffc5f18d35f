package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the pooler's maintenance-engine tunables plus the ambient
// admin/export surface. See SPEC_FULL.md §6 for the full option list.
type Config struct {
	// Environment
	Env             string
	GracefulTimeout time.Duration

	// Maintenance engine (spec §6)
	StatsIntervalTicks int64
	LogStats           bool
	IsShared           bool
	DefaultPoolTTL     time.Duration

	// Admin introspection API
	AdminAddr         string
	AdminAuthToken    string
	AdminRateLimitRPM int

	// Optional stats export
	RedisURL string

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables and an optional
// .env file, the same two-step lookup the teacher's gateway config uses.
func Load() *Config {
	_ = godotenv.Load()

	gracefulSec := getEnvInt("POOLER_GRACEFUL_TIMEOUT_SEC", 15)
	statsIntervalSec := getEnvInt("POOLER_STATS_INTERVAL", 30)
	defaultTTLSec := getEnvInt("POOLER_DEFAULT_POOL_TTL", 60)

	return &Config{
		Env:                getEnv("ENV", "development"),
		GracefulTimeout:    time.Duration(gracefulSec) * time.Second,
		StatsIntervalTicks: int64(statsIntervalSec),
		LogStats:           getEnvBool("POOLER_LOG_STATS", true),
		IsShared:           getEnvBool("POOLER_IS_SHARED", false),
		DefaultPoolTTL:     time.Duration(defaultTTLSec) * time.Second,
		AdminAddr:          getEnv("POOLER_ADMIN_ADDR", ":7432"),
		AdminAuthToken:     getEnv("POOLER_ADMIN_TOKEN", ""),
		AdminRateLimitRPM:  getEnvInt("POOLER_ADMIN_RATE_LIMIT_RPM", 120),
		RedisURL:           getEnv("REDIS_URL", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
