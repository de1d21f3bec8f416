// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package registry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Backend names used in configuration and metrics labels.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// Registry errors
var (
	// ErrRegistryClosed indicates the registry has been closed.
	ErrRegistryClosed = errors.New("registry is closed")

	// ErrEmptyKey indicates a registration without a key.
	ErrEmptyKey = errors.New("registry key is empty")

	// ErrUnknownBackend indicates an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown registry backend")
)

// Record is the value stored alongside a registered key.
type Record struct {
	Key          string    `json:"key"`
	Kind         string    `json:"kind"`
	Source       string    `json:"source"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Registry is the downstream idempotent store. RegisterIfAbsent claims key
// and reports whether this call was the first to do so. It is the final
// duplicate check after the arbitration windows.
type Registry interface {
	// RegisterIfAbsent atomically stores rec under key if no live entry
	// exists. It returns false, nil when the key was already registered.
	RegisterIfAbsent(ctx context.Context, key string, rec *Record) (bool, error)

	// Size returns the approximate number of live entries.
	Size(ctx context.Context) (int, error)

	// Close releases resources. Further registrations return ErrRegistryClosed.
	Close() error
}

// Config selects and configures a registry backend.
type Config struct {
	Backend   string
	TTL       time.Duration
	Prefix    string
	BadgerDir string
	RedisAddr string
	RedisDB   int
	// RedisPassword is optional.
	RedisPassword string
}

// New opens the registry backend named in cfg.
func New(ctx context.Context, cfg Config) (Registry, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryRegistry(cfg.TTL), nil
	case BackendBadger:
		db, err := OpenBadger(cfg.BadgerDir)
		if err != nil {
			return nil, err
		}
		return NewBadgerRegistry(db, cfg.Prefix, cfg.TTL, true), nil
	case BackendRedis:
		client, err := NewRedisClient(ctx, RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return NewRedisRegistry(client, cfg.Prefix, cfg.TTL, true), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
