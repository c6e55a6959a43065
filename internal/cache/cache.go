/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache shares channel configs between instances through Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_tv/internal/models"
	"github.com/friendsincode/grimnir_tv/internal/telemetry"
)

// Default TTL values.
const (
	DefaultChannelTTL = 10 * time.Minute
	DefaultNumbersTTL = 5 * time.Minute
)

// Key prefixes for Redis cache.
const (
	keyPrefix      = "grimnir_tv:cache:"
	KeyChannel     = keyPrefix + "channel:" // + number
	KeyChannelList = keyPrefix + "channel_numbers"
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ChannelTTL time.Duration
	NumbersTTL time.Duration

	// DisableOnError turns the cache off after the first Redis failure.
	DisableOnError bool
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		ChannelTTL:     DefaultChannelTTL,
		NumbersTTL:     DefaultNumbersTTL,
		DisableOnError: true,
	}
}

// Cache is a Redis-backed channel cache that degrades to always missing.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool
}

// New connects to Redis. An unreachable server yields a disabled cache, not
// an error.
func New(cfg Config, logger zerolog.Logger) *Cache {
	logger = logger.With().Str("component", "cache").Logger()
	if cfg.ChannelTTL <= 0 {
		cfg.ChannelTTL = DefaultChannelTTL
	}
	if cfg.NumbersTTL <= 0 {
		cfg.NumbersTTL = DefaultNumbersTTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis cache unavailable, running without shared channel cache")
		_ = client.Close()
		return &Cache{logger: logger, config: cfg, disabled: true}
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")
	return NewWithClient(client, cfg, logger)
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, cfg Config, logger zerolog.Logger) *Cache {
	return &Cache{client: client, logger: logger, config: cfg}
}

// Disabled returns a cache that always misses.
func Disabled(logger zerolog.Logger) *Cache {
	return &Cache{logger: logger.With().Str("component", "cache").Logger(), disabled: true}
}

// Client returns the Redis client, or nil when the cache is disabled.
func (c *Cache) Client() *redis.Client {
	if !c.IsAvailable() {
		return nil
	}
	return c.client
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

// handleError trips the circuit breaker on Redis errors.
func (c *Cache) handleError(err error, operation string) {
	if err == nil || errors.Is(err, redis.Nil) {
		return
	}
	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")
	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

func (c *Cache) get(ctx context.Context, key string, dest any) bool {
	if !c.IsAvailable() {
		return false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		c.handleError(err, "get")
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false
	}
	return true
}

func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}
	return nil
}

func (c *Cache) delete(ctx context.Context, keys ...string) error {
	if !c.IsAvailable() {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.handleError(err, "delete")
		return err
	}
	return nil
}

func channelKey(number int) string {
	return KeyChannel + strconv.Itoa(number)
}

// GetChannel returns the cached channel config.
func (c *Cache) GetChannel(ctx context.Context, number int) (*models.Channel, bool) {
	var ch models.Channel
	if !c.get(ctx, channelKey(number), &ch) {
		telemetry.ChannelCacheLookups.WithLabelValues("redis", "miss").Inc()
		return nil, false
	}
	telemetry.ChannelCacheLookups.WithLabelValues("redis", "hit").Inc()
	return &ch, true
}

// SetChannel caches a channel config.
func (c *Cache) SetChannel(ctx context.Context, ch *models.Channel) error {
	return c.set(ctx, channelKey(ch.Number), ch, c.config.ChannelTTL)
}

// GetChannelNumbers returns the cached channel number list.
func (c *Cache) GetChannelNumbers(ctx context.Context) ([]int, bool) {
	var numbers []int
	if !c.get(ctx, KeyChannelList, &numbers) {
		return nil, false
	}
	return numbers, true
}

// SetChannelNumbers caches the channel number list.
func (c *Cache) SetChannelNumbers(ctx context.Context, numbers []int) error {
	return c.set(ctx, KeyChannelList, numbers, c.config.NumbersTTL)
}

// InvalidateChannel drops a channel config and the number list.
func (c *Cache) InvalidateChannel(ctx context.Context, number int) error {
	c.logger.Debug().Int("channel", number).Msg("invalidating channel cache")
	return c.delete(ctx, channelKey(number), KeyChannelList)
}

// InvalidateChannelNumbers drops the cached channel number list.
func (c *Cache) InvalidateChannelNumbers(ctx context.Context) error {
	return c.delete(ctx, KeyChannelList)
}

// FlushAll removes all cached channel data.
func (c *Cache) FlushAll(ctx context.Context) error {
	if !c.IsAvailable() {
		return nil
	}
	c.logger.Warn().Msg("flushing all cache data")

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			c.handleError(err, "scan")
			return err
		}
		if len(keys) > 0 {
			if err := c.delete(ctx, keys...); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
