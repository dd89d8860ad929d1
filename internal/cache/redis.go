// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/canonical/session-gateway/internal/logging"
	"github.com/canonical/session-gateway/internal/monitoring"
	"github.com/canonical/session-gateway/internal/tracing"
)

var _ CacheInterface = (*Client)(nil)

type Config struct {
	Addr     string
	Username string
	Password string
	DB       int
}

type Client struct {
	rdb redis.UniversalClient

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func NewClient(cfg Config, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{
		rdb:     rdb,
		tracer:  tracer,
		monitor: monitor,
		logger:  logger,
	}, nil
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, span := c.tracer.Start(ctx, "cache.Client.Get")
	defer span.End()

	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read key from cache: %w", err)
	}

	return val, true, nil
}

// Set writes a value with the sliding idle window as its TTL, capped by the
// absolute deadline. The absolute bound wins when it is nearer than the
// sliding window, so Touch can never extend an entry past its deadline.
func (c *Client) Set(ctx context.Context, key string, value []byte, absolute time.Time, sliding time.Duration) error {
	ctx, span := c.tracer.Start(ctx, "cache.Client.Set")
	defer span.End()

	ttl := effectiveTTL(absolute, sliding)
	if ttl <= 0 {
		return fmt.Errorf("refusing to store already-expired key %q", key)
	}

	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write key to cache: %w", err)
	}

	return nil
}

func (c *Client) Touch(ctx context.Context, key string, sliding time.Duration) error {
	ctx, span := c.tracer.Start(ctx, "cache.Client.Touch")
	defer span.End()

	if err := c.rdb.Expire(ctx, key, sliding).Err(); err != nil {
		return fmt.Errorf("failed to bump key ttl: %w", err)
	}

	return nil
}

func (c *Client) Delete(ctx context.Context, keys ...string) error {
	ctx, span := c.tracer.Start(ctx, "cache.Client.Delete")
	defer span.End()

	if len(keys) == 0 {
		return nil
	}

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys from cache: %w", err)
	}

	return nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func effectiveTTL(absolute time.Time, sliding time.Duration) time.Duration {
	untilDeadline := time.Until(absolute)
	if sliding <= 0 || sliding > untilDeadline {
		return untilDeadline
	}
	return sliding
}
