// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

/*
Package sink delivers canonical notifications to subscribers.

The reconciler calls Sink.Emit at most once per real-world occurrence.
WatermillSink serializes the notification envelope to JSON and publishes it
on a watermill message.Publisher:

	gochannel (default)   in-process pub/sub, Open also returns it for local consumers
	nats (-tags=nats)     JetStream via watermill-nats, optional embedded server

Topics follow <prefix>.<kind>.<source>, for example
streamrelay.chat-message.webhook. The notification ID is the watermill
message UUID, which the NATS publisher forwards as Nats-Msg-Id.

Publishing can be guarded by a gobreaker circuit breaker. Emit never returns
an error; failures are logged and counted in
streamrelay_sink_publish_errors_total. Delivery to external consumers is
best effort.

RecordingSink keeps notifications in memory for tests and dry runs.
*/
package sink
