// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package events

import (
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the current notification schema version.
const SchemaVersion = 1

// NotificationKind names a canonical downstream notification.
type NotificationKind string

const (
	NotifyChatMessage     NotificationKind = "chat-message"
	NotifySubsGifted      NotificationKind = "subs-gifted"
	NotifyUserBanned      NotificationKind = "user-banned"
	NotifyStreamStatus    NotificationKind = "stream-status"
	NotifyFollow          NotificationKind = "follow"
	NotifySubscription    NotificationKind = "subscription"
	NotifyWebhookReceived NotificationKind = "webhook-received"
)

// NotificationKinds lists every kind the reconciler can emit.
var NotificationKinds = []NotificationKind{
	NotifyChatMessage,
	NotifySubsGifted,
	NotifyUserBanned,
	NotifyStreamStatus,
	NotifyFollow,
	NotifySubscription,
	NotifyWebhookReceived,
}

// Notification is the envelope handed to the sink. Exactly one is emitted
// per real-world occurrence (per recipient for gifts).
type Notification struct {
	SchemaVersion int              `json:"schema_version"`
	ID            string           `json:"id"`
	Kind          NotificationKind `json:"kind"`
	Source        Channel          `json:"source"`
	OccurredAt    time.Time        `json:"occurred_at"`
	EmittedAt     time.Time        `json:"emitted_at"`
	Payload       interface{}      `json:"payload"`
}

// NewNotification creates a notification with a unique ID and schema version.
func NewNotification(kind NotificationKind, source Channel, occurredAt time.Time, payload interface{}) *Notification {
	return &Notification{
		SchemaVersion: SchemaVersion,
		ID:            uuid.New().String(),
		Kind:          kind,
		Source:        source,
		OccurredAt:    occurredAt.UTC(),
		EmittedAt:     time.Now().UTC(),
		Payload:       payload,
	}
}

// Topic returns the bus subject suffix for this notification.
// Format: <kind>.<source>, e.g. chat-message.webhook
func (n *Notification) Topic() string {
	return string(n.Kind) + "." + string(n.Source)
}

// WebhookReceived is the observability payload emitted for every admitted
// webhook delivery.
type WebhookReceived struct {
	EventKind    string `json:"event_kind"`
	EventVersion string `json:"event_version"`
	LatencyMs    int64  `json:"latency_ms"`
	TestEvent    bool   `json:"test_event,omitempty"`
}

// SubGift is the per-recipient payload of a subs-gifted notification.
type SubGift struct {
	Broadcaster User      `json:"broadcaster"`
	Gifter      User      `json:"gifter"`
	Recipient   User      `json:"recipient"`
	GiftCount   int       `json:"gift_count"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// NotificationKindFor maps an event kind to its notification kind.
func NotificationKindFor(kind Kind) (NotificationKind, bool) {
	switch kind {
	case KindChatMessage:
		return NotifyChatMessage, true
	case KindSubscriptionGifts:
		return NotifySubsGifted, true
	case KindUserBanned:
		return NotifyUserBanned, true
	case KindStreamStatus:
		return NotifyStreamStatus, true
	case KindFollow:
		return NotifyFollow, true
	case KindSubscriptionNew, KindSubscriptionRenewal:
		return NotifySubscription, true
	}
	return "", false
}

// Notifications expands an event into the notifications it produces.
// Gifts yield one notification per distinct recipient; everything else
// yields one.
func Notifications(ev Event) []*Notification {
	kind, ok := NotificationKindFor(ev.Kind())
	if !ok {
		return nil
	}

	gifts, isGift := ev.(*GiftedSubscriptions)
	if !isGift {
		return []*Notification{NewNotification(kind, ev.Source(), ev.OccurredAt(), ev)}
	}

	recipients := DistinctUsers(gifts.Recipients)
	out := make([]*Notification, 0, len(recipients))
	for _, recipient := range recipients {
		out = append(out, NewNotification(kind, gifts.Channel, gifts.CreatedAt, SubGift{
			Broadcaster: gifts.Broadcaster,
			Gifter:      gifts.Gifter,
			Recipient:   recipient,
			GiftCount:   len(recipients),
			ExpiresAt:   gifts.ExpiresAt,
		}))
	}
	return out
}
