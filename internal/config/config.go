/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	MetricsBind string
	DBBackend   DatabaseBackend
	DBDSN       string

	// Shared channel-config cache. An empty address disables Redis.
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	ChannelCacheTTL time.Duration

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Scheduling defaults
	FillerRepeatCooldown time.Duration // applied to channels saved without one
	CompileMaxDays       int           // used when a slot schedule omits maxDays
}

// EnvFileKey names the variable that points at an optional .env file.
const EnvFileKey = "GRIMNIR_TV_ENV_FILE"

// Load reads an optional .env file, then environment variables, applies
// defaults, and validates the result. Variables already set in the
// environment win over the file.
func Load() (*Config, error) {
	if err := loadEnvFile(getEnv(EnvFileKey, ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment: getEnv("GRIMNIR_TV_ENV", "development"),
		HTTPBind:    getEnv("GRIMNIR_TV_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("GRIMNIR_TV_HTTP_PORT", 8000),
		MetricsBind: getEnv("GRIMNIR_TV_METRICS_BIND", "127.0.0.1:9000"),
		DBBackend:   DatabaseBackend(getEnv("GRIMNIR_TV_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:       getEnv("GRIMNIR_TV_DB_DSN", "grimnir_tv.db"),

		RedisAddr:       getEnv("GRIMNIR_TV_REDIS_ADDR", ""),
		RedisPassword:   getEnv("GRIMNIR_TV_REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("GRIMNIR_TV_REDIS_DB", 0),
		ChannelCacheTTL: getEnvDuration("GRIMNIR_TV_CHANNEL_CACHE_TTL", 10*time.Minute),

		TracingEnabled:    getEnvBool("GRIMNIR_TV_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("GRIMNIR_TV_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("GRIMNIR_TV_TRACING_SAMPLE_RATE", 1.0),

		FillerRepeatCooldown: getEnvDuration("GRIMNIR_TV_FILLER_REPEAT_COOLDOWN", 30*time.Minute),
		CompileMaxDays:       getEnvInt("GRIMNIR_TV_COMPILE_MAX_DAYS", 365),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("GRIMNIR_TV_DB_DSN must be provided")
	}
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid GRIMNIR_TV_HTTP_PORT %d", cfg.HTTPPort)
	}
	if cfg.CompileMaxDays <= 0 {
		return nil, fmt.Errorf("GRIMNIR_TV_COMPILE_MAX_DAYS must be positive")
	}
	if cfg.FillerRepeatCooldown < 0 {
		return nil, fmt.Errorf("GRIMNIR_TV_FILLER_REPEAT_COOLDOWN must not be negative")
	}
	if cfg.TracingSampleRate < 0 || cfg.TracingSampleRate > 1 {
		return nil, fmt.Errorf("GRIMNIR_TV_TRACING_SAMPLE_RATE must be between 0 and 1")
	}

	return cfg, nil
}

// HTTPAddr returns the API listen address.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPBind, c.HTTPPort)
}

// RedisEnabled reports whether a shared channel cache is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}

// getEnvDuration accepts Go durations ("90s") or bare integers as minutes.
func getEnvDuration(key string, def time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if minutes, err := strconv.Atoi(val); err == nil {
		return time.Duration(minutes) * time.Minute
	}
	return def
}
