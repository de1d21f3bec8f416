// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

/*
Package reconcile turns deliveries from two redundant channels into exactly
one notification per real-world occurrence.

The webhook channel is slow, rich and at-least-once. The socket channel is
fast, thin and best effort. Both call into one Reconciler:

	HandleWebhookDelivery
	  validate -> idempotency gate -> payload gate (non-test)
	  -> webhook-received notification -> parse -> rich path (no delay)

	HandleSocketDelivery
	  parse -> arbitration window for the kind (held for the delay)

# Per-kind strategy

	chat.message.sent           shared key (message id), cancellable, 5s
	channel.subscription.gifts  content fingerprint, 10s
	moderation.banned           content fingerprint, 10s
	livestream.status.updated   content fingerprint, 10s
	channel.followed            webhook only
	channel.subscription.*      webhook only

Chat messages pass through registry.Registry.RegisterIfAbsent on both
paths; a false return means the webhook lost the race to a fired socket
timer and nothing is emitted.

# Failure policy

Malformed input returns ErrMalformedDelivery before any state changes.
Duplicates are logged at warn level and dropped. A downstream failure after
a gate has admitted a delivery is logged and the delivery is abandoned; the
gate is not rolled back, so a provider redelivery of the same message is
also dropped. Panics are recovered per delivery and per timer.

All state is owned by the Reconciler instance. Reset clears it for tests.
*/
package reconcile
