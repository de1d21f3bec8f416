// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

/*
Package cache provides a thread-safe key presence store with per-key expiry.

It is the storage primitive behind every deduplication gate in streamrelay:
webhook message ids, raw payload hashes and semantic fingerprints are all
recorded in a Cache and forgotten after a fixed lifetime.

# Expiry

Expiry is enforced in two places:
  - Lazily on every read: a key whose deadline is at or before now is
    reported absent and removed
  - Periodically by a background sweep that reclaims memory for keys that
    are never read again

Only the lazy check affects results. The sweep interval is a memory bound.

# Claiming

SetIfAbsent performs the presence check and the write under one lock. Gates
use it instead of Has followed by Set so concurrent deliveries of the same
key cannot both be admitted.

# Usage Example

	ids := cache.New(24*time.Hour, time.Hour)
	defer ids.Close()

	if !ids.SetIfAbsent(messageID) {
	    return // duplicate
	}

# Testing

WithClock injects a controllable time source and WithoutSweep disables the
background goroutine so expiry can be tested deterministically.
*/
package cache
