package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.ServerPort == "" {
		t.Fatalf("expected default server port")
	}
	if cfg.PostgresURL == "" {
		t.Fatalf("expected default postgres url")
	}
	if cfg.Timezone == "" {
		t.Fatalf("expected default timezone")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9000")
	t.Setenv("POSTGRES_URL", "postgres://example")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("API_TOKEN", "secret-token")
	t.Setenv("TIMEZONE", "Asia/Tokyo")

	cfg := Load()
	if cfg.ServerPort != ":9000" {
		t.Fatalf("expected override port")
	}
	if cfg.PostgresURL != "postgres://example" {
		t.Fatalf("expected override postgres")
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("expected override redis")
	}
	if cfg.APIToken != "secret-token" {
		t.Fatalf("expected override token")
	}
	if cfg.Timezone != "Asia/Tokyo" {
		t.Fatalf("expected override timezone")
	}
}

func TestLocation(t *testing.T) {
	cfg := Config{Timezone: "Asia/Tokyo"}
	loc := cfg.Location()
	if loc == nil || loc.String() != "Asia/Tokyo" {
		t.Fatalf("expected Asia/Tokyo location")
	}
}

func TestLocationFallback(t *testing.T) {
	cfg := Config{Timezone: "Not/AZone"}
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC fallback")
	}
}
