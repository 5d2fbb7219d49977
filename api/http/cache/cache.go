package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rexbrahh/lp-vault/api/http/types"
)

// ErrDisabled indicates the cache layer is disabled via configuration.
var ErrDisabled = errors.New("redis cache disabled")

// ConfigKey holds the cached global config.
const ConfigKey = "lpvault:config"

// Config represents Redis client configuration options.
type Config struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// LoadConfigFromEnv constructs a Config from environment variables.
//
// Recognized variables:
//   - API_REDIS_ADDR (required to enable the cache)
//   - API_REDIS_PASSWORD (optional)
//   - API_REDIS_DB (defaults to 0)
//   - API_REDIS_TTL (parseable duration, defaults to 5m)
func LoadConfigFromEnv() (Config, error) {
	addr := os.Getenv("API_REDIS_ADDR")
	if addr == "" {
		return Config{Enabled: false, TTL: 5 * time.Minute}, nil
	}

	password := os.Getenv("API_REDIS_PASSWORD")

	db := 0
	if rawDB := os.Getenv("API_REDIS_DB"); rawDB != "" {
		parsed, err := strconv.Atoi(rawDB)
		if err != nil {
			return Config{}, fmt.Errorf("invalid API_REDIS_DB: %w", err)
		}
		db = parsed
	}

	ttl := 5 * time.Minute
	if rawTTL := os.Getenv("API_REDIS_TTL"); rawTTL != "" {
		parsed, err := time.ParseDuration(rawTTL)
		if err != nil {
			return Config{}, fmt.Errorf("invalid API_REDIS_TTL: %w", err)
		}
		if parsed <= 0 {
			return Config{}, fmt.Errorf("invalid API_REDIS_TTL: must be positive")
		}
		ttl = parsed
	}

	return Config{
		Enabled:  true,
		Addr:     addr,
		Password: password,
		DB:       db,
		TTL:      ttl,
	}, nil
}

// Cache stores ledger views in Redis. Every view of one owner lives in a
// single hash so a write can drop all of them with one DEL.
type Cache struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Cache from the provided configuration.
func New(cfg Config) (*Cache, error) {
	if !cfg.Enabled {
		return &Cache{cfg: cfg}, nil
	}

	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	client := redis.NewClient(opts)

	return &Cache{
		client: client,
		cfg:    cfg,
	}, nil
}

// Enabled reports whether a Redis client is configured.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// OwnerKey returns the hash holding owner's vault and position views.
func OwnerKey(owner string) string {
	return fmt.Sprintf("lpvault:owner:%s", owner)
}

// PositionField names a single position view inside an owner hash.
func PositionField(id uint64) string {
	return "position:" + strconv.FormatUint(id, 10)
}

// Get decodes the cached value at key/field into out.
func (c *Cache) Get(ctx context.Context, key, field string, out any) error {
	if !c.Enabled() {
		return ErrDisabled
	}

	payload, err := c.client.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return types.ErrNotFound
	}
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(payload), out)
}

// generationTTL bounds how long an idle key's invalidation counter is kept.
const generationTTL = 24 * time.Hour

func generationKey(key string) string {
	return key + ":gen"
}

// Generation returns key's invalidation counter. Read it before loading a
// view and hand it to Set.
func (c *Cache) Generation(ctx context.Context, key string) (int64, error) {
	if !c.Enabled() {
		return 0, ErrDisabled
	}
	gen, err := c.client.Get(ctx, generationKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// setIfGeneration writes the field and refreshes the TTL only while the
// counter still equals the generation the caller loaded under.
var setIfGeneration = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[2]) or "0")
if current ~= tonumber(ARGV[1]) then
	return 0
end
redis.call("HSET", KEYS[1], ARGV[2], ARGV[3])
redis.call("PEXPIRE", KEYS[1], ARGV[4])
return 1
`)

// Set stores v at key/field unless key was invalidated after gen was read.
// It reports whether the value was stored.
func (c *Cache) Set(ctx context.Context, key, field string, gen int64, v any) (bool, error) {
	if !c.Enabled() {
		return false, ErrDisabled
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return false, err
	}

	stored, err := setIfGeneration.Run(ctx, c.client,
		[]string{key, generationKey(key)},
		gen, field, string(payload), c.cfg.TTL.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

// Invalidate drops every view stored under keys and bumps their
// generations so in-flight loads cannot store stale views.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	if len(keys) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		for _, key := range keys {
			pipe.Incr(ctx, generationKey(key))
			pipe.Expire(ctx, generationKey(key), generationTTL)
		}
		return nil
	})
	return err
}

// Close releases the Redis client.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}
