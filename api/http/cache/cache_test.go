package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/rexbrahh/lp-vault/api/http/types"
)

func TestDisabledCache(t *testing.T) {
	c, err := New(Config{Enabled: false, TTL: time.Minute})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Enabled() {
		t.Fatal("cache should be disabled")
	}
	ctx := context.Background()
	var out map[string]string
	if err := c.Get(ctx, ConfigKey, "config", &out); !errors.Is(err, ErrDisabled) {
		t.Fatalf("Get err = %v, want ErrDisabled", err)
	}
	if _, err := c.Generation(ctx, ConfigKey); !errors.Is(err, ErrDisabled) {
		t.Fatalf("Generation err = %v, want ErrDisabled", err)
	}
	if _, err := c.Set(ctx, ConfigKey, "config", 0, out); !errors.Is(err, ErrDisabled) {
		t.Fatalf("Set err = %v, want ErrDisabled", err)
	}
	if err := c.Invalidate(ctx, ConfigKey); !errors.Is(err, ErrDisabled) {
		t.Fatalf("Invalidate err = %v, want ErrDisabled", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("API_REDIS_ADDR", "")
	cfg, err := LoadConfigFromEnv()
	if err != nil || cfg.Enabled {
		t.Fatalf("expected disabled config, got %+v err=%v", cfg, err)
	}

	t.Setenv("API_REDIS_ADDR", "127.0.0.1:6379")
	t.Setenv("API_REDIS_DB", "2")
	t.Setenv("API_REDIS_TTL", "30s")
	cfg, err = LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if !cfg.Enabled || cfg.DB != 2 || cfg.TTL != 30*time.Second {
		t.Fatalf("unexpected config %+v", cfg)
	}

	t.Setenv("API_REDIS_TTL", "-1s")
	if _, err := LoadConfigFromEnv(); err == nil {
		t.Fatal("expected error for negative ttl")
	}
	t.Setenv("API_REDIS_TTL", "")
	t.Setenv("API_REDIS_DB", "x")
	if _, err := LoadConfigFromEnv(); err == nil {
		t.Fatal("expected error for invalid db")
	}
}

func TestKeys(t *testing.T) {
	if got := OwnerKey("abc"); got != "lpvault:owner:abc" {
		t.Fatalf("OwnerKey = %s", got)
	}
	if got := PositionField(42); got != "position:42" {
		t.Fatalf("PositionField = %s", got)
	}
}

func newMiniredisCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := New(Config{Enabled: true, Addr: mr.Addr(), TTL: time.Minute})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRedisRoundTrip(t *testing.T) {
	c := newMiniredisCache(t)
	ctx := context.Background()
	key := OwnerKey("roundtrip")
	in := types.BalanceResponse{Identity: "x", Lamports: 7, SOL: types.ToSOL(7)}

	gen, err := c.Generation(ctx, key)
	if err != nil || gen != 0 {
		t.Fatalf("Generation = %d, %v", gen, err)
	}
	stored, err := c.Set(ctx, key, "balance", gen, in)
	if err != nil || !stored {
		t.Fatalf("Set = %t, %v", stored, err)
	}
	var out types.BalanceResponse
	if err := c.Get(ctx, key, "balance", &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out != in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
	if err := c.Invalidate(ctx, key); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if err := c.Get(ctx, key, "balance", &out); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after invalidate, got %v", err)
	}
}

func TestSetAfterInvalidateIsDropped(t *testing.T) {
	c := newMiniredisCache(t)
	ctx := context.Background()
	key := OwnerKey("racer")

	// a reader captures the generation, then a write commits and invalidates
	gen, err := c.Generation(ctx, key)
	if err != nil {
		t.Fatalf("Generation: %v", err)
	}
	if err := c.Invalidate(ctx, key); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	stale := types.BalanceResponse{Identity: "x", Lamports: 1}
	stored, err := c.Set(ctx, key, "balance", gen, stale)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if stored {
		t.Fatal("stale view stored after invalidation")
	}
	var out types.BalanceResponse
	if err := c.Get(ctx, key, "balance", &out); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected miss, got %+v, %v", out, err)
	}

	fresh, err := c.Generation(ctx, key)
	if err != nil || fresh != gen+1 {
		t.Fatalf("Generation = %d, %v; want %d", fresh, err, gen+1)
	}
	stored, err = c.Set(ctx, key, "balance", fresh, types.BalanceResponse{Identity: "x", Lamports: 2})
	if err != nil || !stored {
		t.Fatalf("Set(fresh) = %t, %v", stored, err)
	}
	if err := c.Get(ctx, key, "balance", &out); err != nil || out.Lamports != 2 {
		t.Fatalf("Get = %+v, %v", out, err)
	}
}
