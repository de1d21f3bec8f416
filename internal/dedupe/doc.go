// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

/*
Package dedupe implements the three admission gates applied to deliveries.

  - IdempotencyGate: exact webhook redelivery, keyed by message id (24h).
  - PayloadGate: byte-identical payloads under different ids, keyed by
    SHA-256 of the raw body (5s).
  - SemanticGate: the same occurrence seen on both channels when they share
    no identifier, keyed by a content Fingerprint.

Every gate admits with a single atomic claim on a cache.Cache, so
concurrent deliveries of the same key admit exactly once.

Fingerprints are produced by a Fingerprinter per event kind. The
provided ones bucket the occurrence time. The adjacent buckets are probed
only for entries the other channel recorded:

	fp := dedupe.GiftFingerprint(10 * time.Second)(gifts)
	if !semantic.Admit(fp, events.ChannelSocket) {
	    return // already emitted by the other channel
	}
*/
package dedupe
