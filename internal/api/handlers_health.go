// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package api

import (
	"net/http"
	"time"
)

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status            string         `json:"status"`
	Version           string         `json:"version"`
	Uptime            float64        `json:"uptime_seconds"`
	SocketConnected   *bool          `json:"socket_connected,omitempty"`
	PendingDeliveries map[string]int `json:"pending_deliveries"`
}

// Health reports liveness and the number of socket deliveries held per kind.
// A disconnected socket degrades the status; webhooks are still accepted.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	health := HealthStatus{
		Status:            "healthy",
		Version:           h.config.Version,
		Uptime:            time.Since(h.startTime).Seconds(),
		PendingDeliveries: h.reconciler.PendingCounts(),
	}
	if h.socket != nil {
		connected := h.socket.Connected()
		health.SocketConnected = &connected
		if !connected {
			health.Status = "degraded"
		}
	}

	respondSuccess(w, r, http.StatusOK, health, start)
}
