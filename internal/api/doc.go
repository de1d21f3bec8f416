// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

/*
Package api is the HTTP face of the relay.

Routes:

	POST /api/v1/webhooks/kick   provider webhook deliveries
	POST /api/v1/webhooks/test   synthetic test deliveries (when enabled)
	GET  /health                 status, uptime, pending socket deliveries
	GET  /metrics                Prometheus exposition

A webhook delivery is read verbatim, checked against the provider's RSA
signature over "<message id>.<timestamp>.<body>", base64 encoded and passed
to the reconciler. Duplicates are acknowledged with 200 so the provider
stops retrying; only malformed input (400) and signature failures (401) are
rejected.

Middleware order: request id, real IP, panic recovery, then per group rate
limiting (go-chi/httprate), security headers and Prometheus metrics.
*/
package api
