// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

/*
Package metrics provides Prometheus metrics for the reconciliation pipeline.

Collectors are registered on the default registry through promauto and
exposed at /metrics by the API router. Callers use the Record* helpers
rather than touching collectors directly.

# Reconciliation

  - streamrelay_webhook_deliveries_total{outcome}
  - streamrelay_gate_rejections_total{gate,channel}
  - streamrelay_arbitration_outcomes_total{kind,outcome}
  - streamrelay_pending_deliveries{kind}
  - streamrelay_registry_operations_total{backend,outcome}
  - streamrelay_notifications_emitted_total{kind,source}
  - streamrelay_dispatch_failures_total{kind,reason}

A healthy deployment shows most chat messages preempted by the webhook and
a small, steady count of semantic gate rejections on the socket channel.
*/
package metrics
