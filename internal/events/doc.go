// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

/*
Package events defines the channel-agnostic event model shared by the
webhook and socket adapters.

# Channels

Every platform occurrence can arrive twice:

  - Webhook: signed HTTP deliveries with rich payloads (sender identity,
    badges, emote positions, reply context). At-least-once.
  - Socket: Pusher events on the chatroom channel. Fast, thin and
    unreliable. Chat messages share their UUID with the webhook feed;
    gifts, bans and stream status share no identifier at all.

ParseWebhook and ParseSocket decode each channel's payloads into the same
Event implementations (ChatMessage, GiftedSubscriptions, UserBanned,
StreamStatus, Follow, Subscription) so the reconciler can compare them.

# Notifications

Notifications wraps a reconciled event in the envelope published to the
sink. Gifts expand into one subs-gifted notification per recipient.
*/
package events
