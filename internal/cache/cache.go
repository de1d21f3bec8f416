// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package cache

import (
	"sync"
	"time"
)

// Clock returns the current time. Tests substitute a controllable clock.
type Clock func() time.Time

// Option configures a Cache at construction time.
type Option func(*Cache)

// WithClock overrides the time source used for expiry decisions.
func WithClock(clock Clock) Option {
	return func(c *Cache) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithoutSweep disables the background sweep goroutine. Expired keys are
// still hidden by lazy expiry and can be removed with Sweep.
func WithoutSweep() Option {
	return func(c *Cache) {
		c.sweepInterval = 0
	}
}

// Cache is a thread-safe key presence store where every key carries an
// expiry deadline.
//
// A key whose deadline is at or before the current time reports absent from
// Has and SetIfAbsent even if the background sweep has not removed it yet.
// The sweep only reclaims memory; it never changes observable results.
type Cache struct {
	mu            sync.Mutex
	entries       map[string]time.Time
	ttl           time.Duration
	sweepInterval time.Duration
	now           Clock
	stats         Stats

	done      chan struct{}
	closeOnce sync.Once
}

// Stats tracks cache performance metrics
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// New creates a cache whose entries live for ttl and whose expired entries
// are swept every sweepInterval. A non-positive sweepInterval disables the
// sweep goroutine.
//
// Example:
//
//	ids := cache.New(24*time.Hour, time.Hour)
//	defer ids.Close()
//	if !ids.SetIfAbsent(messageID) {
//	    // duplicate
//	}
func New(ttl, sweepInterval time.Duration, opts ...Option) *Cache {
	c := &Cache{
		entries:       make(map[string]time.Time),
		ttl:           ttl,
		sweepInterval: sweepInterval,
		now:           time.Now,
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.stats.LastCleanup = c.now()

	if c.sweepInterval > 0 {
		go c.sweepLoop()
	}

	return c
}

// TTL returns the lifetime applied by Set.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Has reports whether key is present and unexpired. An expired key found
// on read is removed and counted as an eviction.
func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.liveLocked(key, c.now()) {
		c.stats.Hits++
		return true
	}
	c.stats.Misses++
	return false
}

// Set records key with the default TTL, overwriting any previous deadline.
func (c *Cache) Set(key string) {
	c.SetWithTTL(key, c.ttl)
}

// SetWithTTL records key with a custom TTL.
func (c *Cache) SetWithTTL(key string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = c.now().Add(ttl)
	c.stats.TotalKeys = int64(len(c.entries))
}

// SetIfAbsent records key only when it is not already live and reports
// whether it did so. The check and the write happen under one lock, so
// exactly one of any number of concurrent callers for the same key wins.
func (c *Cache) SetIfAbsent(key string) bool {
	return c.SetAnyIfAbsent([]string{key}, key)
}

// SetAnyIfAbsent records primary only when none of probes is live. It
// reports whether primary was recorded.
func (c *Cache) SetAnyIfAbsent(probes []string, primary string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for _, key := range probes {
		if c.liveLocked(key, now) {
			c.stats.Hits++
			return false
		}
	}
	c.stats.Misses++
	c.entries[primary] = now.Add(c.ttl)
	c.stats.TotalKeys = int64(len(c.entries))
	return true
}

// Delete removes key. Deleting an absent key is a no-op.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.stats.Evictions++
		c.stats.TotalKeys = int64(len(c.entries))
	}
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Evictions += int64(len(c.entries))
	c.entries = make(map[string]time.Time)
	c.stats.TotalKeys = 0
}

// Len returns the number of stored entries, including expired entries the
// sweep has not reclaimed yet.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep removes every expired entry and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, expiresAt := range c.entries {
		if !now.Before(expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}

	c.stats.Evictions += int64(removed)
	c.stats.TotalKeys = int64(len(c.entries))
	c.stats.LastCleanup = now
	return removed
}

// Close stops the background sweep. It is safe to call more than once.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// GetStats returns a snapshot of current cache statistics.
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// HitRate returns the cache hit rate as a percentage
func (c *Cache) HitRate() float64 {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits) / float64(total) * 100.0
}

// liveLocked reports whether key holds an unexpired deadline, dropping it
// if it has expired. Caller must hold c.mu.
func (c *Cache) liveLocked(key string, now time.Time) bool {
	expiresAt, ok := c.entries[key]
	if !ok {
		return false
	}
	if !now.Before(expiresAt) {
		delete(c.entries, key)
		c.stats.Evictions++
		c.stats.TotalKeys = int64(len(c.entries))
		return false
	}
	return true
}

func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.done:
			return
		}
	}
}
