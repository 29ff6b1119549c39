package config

import (
	"testing"
	"time"
)

func TestLoadConfigReadsEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PAGINATION_DEFAULT_TAKE", "25")
	t.Setenv("PAGINATION_MAX_TAKE", "50")
	t.Setenv("SORT_STRICT", "true")
	t.Setenv("COUNT_CACHE_TTL_SEC", "30")
	t.Setenv("REDIS_ADDR", " localhost:6379 ")

	cfg := LoadConfig()

	if cfg.Port != "9090" {
		t.Fatalf("port: got %q", cfg.Port)
	}
	if cfg.Pagination.DefaultTake != 25 || cfg.Pagination.MaxTake != 50 {
		t.Fatalf("pagination: got %+v", cfg.Pagination)
	}
	if !cfg.SortStrict {
		t.Fatalf("expected strict sort")
	}
	if cfg.CountCache.TTL != 30*time.Second {
		t.Fatalf("count cache ttl: got %s", cfg.CountCache.TTL)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("redis addr: got %q", cfg.RedisAddr)
	}
}

func TestLoadConfigFallsBackOnInvalidValues(t *testing.T) {
	t.Setenv("PAGINATION_DEFAULT_TAKE", "500")
	t.Setenv("PAGINATION_MAX_TAKE", "abc")
	t.Setenv("AUTO_MIGRATE", "maybe")
	t.Setenv("COUNT_CACHE_TTL_SEC", "-5")

	cfg := LoadConfig()

	if cfg.Pagination.MaxTake != 100 {
		t.Fatalf("max take: got %d, want 100", cfg.Pagination.MaxTake)
	}
	if cfg.Pagination.DefaultTake != 20 {
		t.Fatalf("default take: got %d, want 20", cfg.Pagination.DefaultTake)
	}
	if cfg.AutoMigrate {
		t.Fatalf("invalid bool must fall back to false")
	}
	if cfg.CountCache.TTL != 0 {
		t.Fatalf("negative ttl must disable cache, got %s", cfg.CountCache.TTL)
	}
}
