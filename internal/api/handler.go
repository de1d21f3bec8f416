// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package api

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/streamrelay/internal/reconcile"
)

// DefaultMaxBodyBytes bounds a webhook body.
const DefaultMaxBodyBytes int64 = 1 << 20

// Reconciler is the part of the reconciliation engine the HTTP layer drives.
type Reconciler interface {
	HandleWebhookDelivery(ctx context.Context, d reconcile.WebhookDelivery) error
	PendingCounts() map[string]int
}

// SocketStatus reports whether the socket channel is currently connected.
type SocketStatus interface {
	Connected() bool
}

// HandlerConfig controls webhook handling.
type HandlerConfig struct {
	// TestEndpointEnabled exposes POST /api/v1/webhooks/test.
	TestEndpointEnabled bool

	// MaxBodyBytes limits the request body; zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// Version is reported by the health endpoint.
	Version string
}

// Handler serves the webhook, test and health endpoints.
type Handler struct {
	reconciler Reconciler
	verifier   Verifier
	socket     SocketStatus
	config     HandlerConfig
	startTime  time.Time

	now   func() time.Time
	newID func() string
}

// NewHandler creates a handler. A nil verifier disables signature checks.
func NewHandler(rec Reconciler, verifier Verifier, cfg HandlerConfig) *Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	return &Handler{
		reconciler: rec,
		verifier:   verifier,
		config:     cfg,
		startTime:  time.Now(),
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
	}
}

// SetSocketStatus attaches the socket client so health can report on it.
func (h *Handler) SetSocketStatus(s SocketStatus) {
	h.socket = s
}
