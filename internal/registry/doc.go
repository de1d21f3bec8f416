// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

// Package registry provides the downstream idempotent store used as the
// last duplicate check before a notification is emitted.
//
// Three backends implement Registry:
//   - MemoryRegistry: TTL cache, process-local, the default
//   - BadgerRegistry: BadgerDB with per-entry TTL, survives restarts
//   - RedisRegistry: SET NX EX, shared by several relay instances
//
// RegisterIfAbsent returns (false, nil) for a key that is already claimed.
// An error means the store could not answer; callers treat that as a
// failed delivery, not as a duplicate.
package registry
