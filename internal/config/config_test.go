/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvFileKey, filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBBackend != DatabaseSQLite || cfg.DBDSN == "" {
		t.Fatalf("unexpected database defaults: %s %q", cfg.DBBackend, cfg.DBDSN)
	}
	if cfg.RedisEnabled() {
		t.Fatal("expected redis to be disabled by default")
	}
	if cfg.FillerRepeatCooldown != 30*time.Minute {
		t.Fatalf("unexpected filler cooldown: %v", cfg.FillerRepeatCooldown)
	}
	if cfg.HTTPAddr() != "0.0.0.0:8000" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTPAddr())
	}
}

func TestLoadReadsEnvKeys(t *testing.T) {
	t.Setenv(EnvFileKey, "")
	t.Setenv("GRIMNIR_TV_DB_BACKEND", "postgres")
	t.Setenv("GRIMNIR_TV_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("GRIMNIR_TV_REDIS_ADDR", "redis:6379")
	t.Setenv("GRIMNIR_TV_FILLER_REPEAT_COOLDOWN", "45")
	t.Setenv("GRIMNIR_TV_CHANNEL_CACHE_TTL", "90s")
	t.Setenv("GRIMNIR_TV_TRACING_ENABLED", "yes")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBBackend != DatabasePostgres {
		t.Fatalf("unexpected backend: %s", cfg.DBBackend)
	}
	if !cfg.RedisEnabled() || cfg.RedisAddr != "redis:6379" {
		t.Fatalf("unexpected redis addr: %q", cfg.RedisAddr)
	}
	if cfg.FillerRepeatCooldown != 45*time.Minute {
		t.Fatalf("bare integers should be minutes, got %v", cfg.FillerRepeatCooldown)
	}
	if cfg.ChannelCacheTTL != 90*time.Second {
		t.Fatalf("unexpected cache ttl: %v", cfg.ChannelCacheTTL)
	}
	if !cfg.TracingEnabled {
		t.Fatal("expected tracing enabled")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"backend", "GRIMNIR_TV_DB_BACKEND", "oracle"},
		{"port", "GRIMNIR_TV_HTTP_PORT", "70000"},
		{"max days", "GRIMNIR_TV_COMPILE_MAX_DAYS", "-1"},
		{"sample rate", "GRIMNIR_TV_TRACING_SAMPLE_RATE", "1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvFileKey, "")
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected %s=%s to be rejected", tt.key, tt.val)
			}
		})
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grimnir.env")
	body := "GRIMNIR_TV_METRICS_BIND=127.0.0.1:9911\nGRIMNIR_TV_HTTP_PORT=9100\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv(EnvFileKey, path)
	// Already set, so the file must not override it.
	t.Setenv("GRIMNIR_TV_HTTP_PORT", "8123")
	t.Cleanup(func() { os.Unsetenv("GRIMNIR_TV_METRICS_BIND") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.MetricsBind != "127.0.0.1:9911" {
		t.Fatalf("expected metrics bind from env file, got %q", cfg.MetricsBind)
	}
	if cfg.HTTPPort != 8123 {
		t.Fatalf("environment should win over env file, got %d", cfg.HTTPPort)
	}
}
