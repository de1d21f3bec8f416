// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package reconcile

import (
	"errors"
	"fmt"
	"time"
)

// Config holds every TTL, sweep interval and delay budget used by the
// reconciler.
type Config struct {
	// MessageIDTTL covers the provider's redelivery window.
	MessageIDTTL   time.Duration `koanf:"message_id_ttl"`
	MessageIDSweep time.Duration `koanf:"message_id_sweep"`

	// PayloadTTL only suppresses near-simultaneous duplicates.
	PayloadTTL   time.Duration `koanf:"payload_ttl"`
	PayloadSweep time.Duration `koanf:"payload_sweep"`

	// SemanticTTL must cover the longest fingerprint delay.
	SemanticTTL   time.Duration `koanf:"semantic_ttl"`
	SemanticSweep time.Duration `koanf:"semantic_sweep"`

	ChatDelay         time.Duration `koanf:"chat_delay"`
	GiftDelay         time.Duration `koanf:"gift_delay"`
	BanDelay          time.Duration `koanf:"ban_delay"`
	StreamStatusDelay time.Duration `koanf:"stream_status_delay"`

	// BucketWidth is the time bucket granularity of content fingerprints.
	BucketWidth time.Duration `koanf:"bucket_width"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MessageIDTTL:      24 * time.Hour,
		MessageIDSweep:    time.Hour,
		PayloadTTL:        5 * time.Second,
		PayloadSweep:      time.Minute,
		SemanticTTL:       30 * time.Second,
		SemanticSweep:     time.Minute,
		ChatDelay:         5 * time.Second,
		GiftDelay:         10 * time.Second,
		BanDelay:          10 * time.Second,
		StreamStatusDelay: 10 * time.Second,
		BucketWidth:       10 * time.Second,
	}
}

// Validate checks that every duration is positive and that the semantic
// TTL outlives the fingerprint delays feeding it.
func (c Config) Validate() error {
	positive := map[string]time.Duration{
		"message_id_ttl":      c.MessageIDTTL,
		"payload_ttl":         c.PayloadTTL,
		"semantic_ttl":        c.SemanticTTL,
		"chat_delay":          c.ChatDelay,
		"gift_delay":          c.GiftDelay,
		"ban_delay":           c.BanDelay,
		"stream_status_delay": c.StreamStatusDelay,
		"bucket_width":        c.BucketWidth,
	}
	var errs []error
	for name, d := range positive {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	for name, d := range map[string]time.Duration{
		"message_id_sweep": c.MessageIDSweep,
		"payload_sweep":    c.PayloadSweep,
		"semantic_sweep":   c.SemanticSweep,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %s", name, d))
		}
	}

	longest := max(c.GiftDelay, c.BanDelay, c.StreamStatusDelay)
	if c.SemanticTTL < longest {
		errs = append(errs, fmt.Errorf("semantic_ttl (%s) must be at least the longest fingerprint delay (%s)", c.SemanticTTL, longest))
	}
	return errors.Join(errs...)
}
