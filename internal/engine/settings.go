// Copyright 2025 James Ross
package engine

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Store-side settings live in a hash under the namespace so every engine
// instance sharing the store observes the same values.
const (
	defaultHeartbeat        = 60
	defaultJobsHistory      = 7 * 24 * 60 * 60
	defaultJobsHistoryCount = 50000
)

func (e *Engine) configHashKey() string { return e.ns + ":config" }

// SetConfig writes a store-side setting, e.g. "heartbeat" or
// "imaging-heartbeat" for a per-queue override.
func (e *Engine) SetConfig(ctx context.Context, key, value string) error {
	return e.rdb.HSet(ctx, e.configHashKey(), key, value).Err()
}

// GetConfig reads a store-side setting; ok is false when unset.
func (e *Engine) GetConfig(ctx context.Context, key string) (string, bool, error) {
	v, err := e.rdb.HGet(ctx, e.configHashKey(), key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// DeleteConfig removes a store-side setting.
func (e *Engine) DeleteConfig(ctx context.Context, key string) error {
	return e.rdb.HDel(ctx, e.configHashKey(), key).Err()
}

// AllConfig returns every store-side setting.
func (e *Engine) AllConfig(ctx context.Context) (map[string]string, error) {
	return e.rdb.HGetAll(ctx, e.configHashKey()).Result()
}

// configInt reads a numeric setting with a default, through the transaction
// connection when called inside one.
func (e *Engine) configInt(ctx context.Context, c redis.Cmdable, key string, def int64) (int64, error) {
	v, err := c.HGet(ctx, e.configHashKey(), key).Result()
	if err == redis.Nil {
		return def, nil
	}
	if err != nil {
		return 0, err
	}
	if v == "" {
		return def, nil
	}
	return parseInt(v), nil
}

// heartbeatInterval resolves the lock duration for a queue: the per-queue
// override wins, then the global setting, then the built-in default.
func (e *Engine) heartbeatInterval(ctx context.Context, c redis.Cmdable, queue string) (int64, error) {
	v, err := c.HGet(ctx, e.configHashKey(), queue+"-heartbeat").Result()
	if err == nil && v != "" {
		return parseInt(v), nil
	}
	if err != nil && err != redis.Nil {
		return 0, err
	}
	return e.configInt(ctx, c, "heartbeat", defaultHeartbeat)
}
