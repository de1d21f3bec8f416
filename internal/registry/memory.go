// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package registry

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/streamrelay/internal/cache"
	"github.com/tomtom215/streamrelay/internal/metrics"
)

// defaultMemorySweep bounds how long expired registrations stay resident.
const defaultMemorySweep = time.Hour

// MemoryRegistry is an in-process registry on top of the TTL cache.
// Entries are lost on restart.
type MemoryRegistry struct {
	mu     sync.RWMutex
	keys   *cache.Cache
	closed bool
}

// NewMemoryRegistry creates a registry whose entries live for ttl.
func NewMemoryRegistry(ttl time.Duration, opts ...cache.Option) *MemoryRegistry {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryRegistry{keys: cache.New(ttl, defaultMemorySweep, opts...)}
}

// RegisterIfAbsent claims key.
func (r *MemoryRegistry) RegisterIfAbsent(_ context.Context, key string, _ *Record) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		metrics.RecordRegistryOperation(BackendMemory, "failure")
		return false, ErrRegistryClosed
	}

	if !r.keys.SetIfAbsent(key) {
		metrics.RecordRegistryOperation(BackendMemory, "duplicate")
		return false, nil
	}
	metrics.RecordRegistryOperation(BackendMemory, "registered")
	return true, nil
}

// Size returns the number of live entries.
func (r *MemoryRegistry) Size(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return 0, ErrRegistryClosed
	}
	return r.keys.Len(), nil
}

// Reset drops every registration.
func (r *MemoryRegistry) Reset() {
	r.keys.Clear()
}

// Close stops the sweep and rejects further registrations.
func (r *MemoryRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.keys.Close()
	return nil
}
