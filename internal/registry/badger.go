// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/streamrelay/internal/logging"
	"github.com/tomtom215/streamrelay/internal/metrics"
)

const defaultPrefix = "registry:"

// OpenBadger opens a badger database at dir. An empty dir opens an
// in-memory database.
func OpenBadger(dir string) (*badger.DB, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
		opts.ValueLogFileSize = 16 << 20
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger registry: %w", err)
	}
	return db, nil
}

// BadgerRegistry stores registrations in BadgerDB with a per-entry TTL, so
// the downstream store survives restarts.
type BadgerRegistry struct {
	db      *badger.DB
	prefix  []byte
	ttl     time.Duration
	ownsDB  bool
	closed  bool
	mu      sync.RWMutex
	nowFunc func() time.Time
}

// NewBadgerRegistry creates a registry on db. When ownsDB is true Close
// also closes db.
func NewBadgerRegistry(db *badger.DB, prefix string, ttl time.Duration, ownsDB bool) *BadgerRegistry {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &BadgerRegistry{
		db:      db,
		prefix:  []byte(prefix),
		ttl:     ttl,
		ownsDB:  ownsDB,
		nowFunc: time.Now,
	}
}

func (r *BadgerRegistry) makeKey(key string) []byte {
	k := make([]byte, 0, len(r.prefix)+len(key))
	k = append(k, r.prefix...)
	return append(k, key...)
}

// RegisterIfAbsent claims key in a single read-write transaction. A
// transaction conflict means a concurrent caller committed the same key
// first and is reported as a duplicate.
func (r *BadgerRegistry) RegisterIfAbsent(ctx context.Context, key string, rec *Record) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		metrics.RecordRegistryOperation(BackendBadger, "failure")
		return false, ErrRegistryClosed
	}

	if err := ctx.Err(); err != nil {
		return false, err
	}

	dbKey := r.makeKey(key)
	registered := false

	err := r.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(dbKey)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		stored := Record{Key: key, RegisteredAt: r.nowFunc()}
		if rec != nil {
			stored = *rec
			stored.Key = key
			if stored.RegisteredAt.IsZero() {
				stored.RegisteredAt = r.nowFunc()
			}
		}
		data, err := json.Marshal(&stored)
		if err != nil {
			return err
		}

		registered = true
		return txn.SetEntry(badger.NewEntry(dbKey, data).WithTTL(r.ttl))
	})

	switch {
	case errors.Is(err, badger.ErrConflict):
		metrics.RecordRegistryOperation(BackendBadger, "duplicate")
		return false, nil
	case err != nil:
		metrics.RecordRegistryOperation(BackendBadger, "failure")
		logging.Error().Err(err).Str("key", key).Msg("Badger registry write failed")
		return false, fmt.Errorf("register %q: %w", key, err)
	case !registered:
		metrics.RecordRegistryOperation(BackendBadger, "duplicate")
		return false, nil
	}

	metrics.RecordRegistryOperation(BackendBadger, "registered")
	return true, nil
}

// Lookup returns the record stored for key, or nil if none is live.
func (r *BadgerRegistry) Lookup(_ context.Context, key string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}

	var rec *Record
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(r.makeKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var stored Record
			if err := json.Unmarshal(val, &stored); err != nil {
				return err
			}
			rec = &stored
			return nil
		})
	})
	return rec, err
}

// Size counts live entries under the registry prefix.
func (r *BadgerRegistry) Size(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return 0, ErrRegistryClosed
	}

	count := 0
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = r.prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Close marks the registry closed and closes the database if owned.
func (r *BadgerRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.ownsDB {
		return r.db.Close()
	}
	return nil
}
