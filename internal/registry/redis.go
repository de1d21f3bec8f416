// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/streamrelay/internal/metrics"
)

// RedisConfig holds connection settings for the Redis registry.
type RedisConfig struct {
	Addr     string
	Password string // optional
	DB       int    // optional
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// RedisRegistry claims keys with SET NX, so several relay instances can
// share one downstream store.
type RedisRegistry struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	ownsCli bool

	mu     sync.RWMutex
	closed bool
}

// NewRedisRegistry creates a registry on client. When owns is true Close
// also closes the client.
func NewRedisRegistry(client *redis.Client, prefix string, ttl time.Duration, owns bool) *RedisRegistry {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisRegistry{client: client, prefix: prefix, ttl: ttl, ownsCli: owns}
}

// RegisterIfAbsent claims key with SET NX EX.
func (r *RedisRegistry) RegisterIfAbsent(ctx context.Context, key string, rec *Record) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		metrics.RecordRegistryOperation(BackendRedis, "failure")
		return false, ErrRegistryClosed
	}

	stored := Record{Key: key, RegisteredAt: time.Now()}
	if rec != nil {
		stored = *rec
		stored.Key = key
		if stored.RegisteredAt.IsZero() {
			stored.RegisteredAt = time.Now()
		}
	}
	data, err := json.Marshal(&stored)
	if err != nil {
		return false, fmt.Errorf("encode record: %w", err)
	}

	acquired, err := r.client.SetNX(ctx, r.prefix+key, data, r.ttl).Result()
	if err != nil {
		metrics.RecordRegistryOperation(BackendRedis, "failure")
		return false, fmt.Errorf("register %q: %w", key, err)
	}
	if !acquired {
		metrics.RecordRegistryOperation(BackendRedis, "duplicate")
		return false, nil
	}
	metrics.RecordRegistryOperation(BackendRedis, "registered")
	return true, nil
}

// Size counts keys under the registry prefix with SCAN.
func (r *RedisRegistry) Size(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return 0, ErrRegistryClosed
	}

	count := 0
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		count++
	}
	return count, iter.Err()
}

// Close marks the registry closed and closes the client if owned.
func (r *RedisRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.ownsCli {
		return r.client.Close()
	}
	return nil
}
