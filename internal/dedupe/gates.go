// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/tomtom215/streamrelay/internal/cache"
	"github.com/tomtom215/streamrelay/internal/events"
)

// Gate names used in logs and metrics.
const (
	GateIdempotency = "idempotency"
	GatePayload     = "payload"
	GateSemantic    = "semantic"
)

// IdempotencyGate rejects redelivery of a webhook message id seen within
// the TTL.
type IdempotencyGate struct {
	seen *cache.Cache
}

// NewIdempotencyGate creates a gate that remembers message ids for ttl.
func NewIdempotencyGate(ttl, sweepInterval time.Duration, opts ...cache.Option) *IdempotencyGate {
	return &IdempotencyGate{seen: cache.New(ttl, sweepInterval, opts...)}
}

// Admit records messageID and reports true the first time it is seen.
func (g *IdempotencyGate) Admit(messageID string) bool {
	return g.seen.SetIfAbsent(messageID)
}

// Len returns the number of remembered ids.
func (g *IdempotencyGate) Len() int { return g.seen.Len() }

// Reset forgets every id.
func (g *IdempotencyGate) Reset() { g.seen.Clear() }

// Close stops the background sweep.
func (g *IdempotencyGate) Close() { g.seen.Close() }

// PayloadGate rejects byte-identical payloads delivered again within a
// short TTL, typically under a different message id by a second
// subscription.
type PayloadGate struct {
	hashes *cache.Cache
}

// NewPayloadGate creates a gate that remembers payload hashes for ttl.
func NewPayloadGate(ttl, sweepInterval time.Duration, opts ...cache.Option) *PayloadGate {
	return &PayloadGate{hashes: cache.New(ttl, sweepInterval, opts...)}
}

// Admit records the SHA-256 of raw and reports true if it was not present.
func (g *PayloadGate) Admit(raw []byte) bool {
	return g.hashes.SetIfAbsent(PayloadHash(raw))
}

// Len returns the number of remembered hashes.
func (g *PayloadGate) Len() int { return g.hashes.Len() }

// Reset forgets every hash.
func (g *PayloadGate) Reset() { g.hashes.Clear() }

// Close stops the background sweep.
func (g *PayloadGate) Close() { g.hashes.Close() }

// PayloadHash returns the hex SHA-256 of raw.
func PayloadHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// SemanticGate rejects events whose content fingerprint was already
// admitted within the TTL. Both channels call Admit at emit time and the
// first caller wins.
//
// Keys are recorded per channel. An exact bucket match rejects a delivery
// from either channel, but a neighbor bucket match only rejects a delivery
// from the other channel: neighbors absorb timestamp skew between the two
// channels, and two deliveries on the same channel with different buckets
// are distinct occurrences.
type SemanticGate struct {
	seen *cache.Cache
}

// semanticChannels are the channels whose recorded keys Admit probes.
var semanticChannels = []events.Channel{events.ChannelWebhook, events.ChannelSocket}

// NewSemanticGate creates a gate that remembers fingerprints for ttl. The
// ttl must be at least the longest arbitration delay that feeds the gate.
func NewSemanticGate(ttl, sweepInterval time.Duration, opts ...cache.Option) *SemanticGate {
	return &SemanticGate{seen: cache.New(ttl, sweepInterval, opts...)}
}

// Admit reports true and records fp.Primary for channel from when no
// channel holds fp.Primary and no other channel holds one of fp.Neighbors.
// The check and the write are atomic.
func (g *SemanticGate) Admit(fp Fingerprint, from events.Channel) bool {
	if fp.Primary == "" {
		return true
	}
	probes := make([]string, 0, len(semanticChannels)*(1+len(fp.Neighbors)))
	for _, ch := range semanticChannels {
		probes = append(probes, channelKey(fp.Primary, ch))
		if ch == from {
			continue
		}
		for _, n := range fp.Neighbors {
			probes = append(probes, channelKey(n, ch))
		}
	}
	return g.seen.SetAnyIfAbsent(probes, channelKey(fp.Primary, from))
}

func channelKey(key string, ch events.Channel) string {
	return string(ch) + "/" + key
}

// TTL returns how long fingerprints are remembered.
func (g *SemanticGate) TTL() time.Duration { return g.seen.TTL() }

// Len returns the number of remembered fingerprints.
func (g *SemanticGate) Len() int { return g.seen.Len() }

// Reset forgets every fingerprint.
func (g *SemanticGate) Reset() { g.seen.Clear() }

// Close stops the background sweep.
func (g *SemanticGate) Close() { g.seen.Close() }
