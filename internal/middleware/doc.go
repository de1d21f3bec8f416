// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

/*
Package middleware provides HTTP middleware shared by the relay's endpoints.

Key Components:

  - Request ID: UUID-based request tracking, mirrored into the logging context
  - Prometheus Metrics: request count, latency and in-flight gauge per route

Both are plain http.HandlerFunc wrappers; the api package adapts them to chi:

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chiMiddleware(middleware.PrometheusMetrics))

The endpoint label recorded by PrometheusMetrics is the chi route pattern
(for example /api/v1/webhooks/kick) when one is available, so path
parameters do not create new series.
*/
package middleware
