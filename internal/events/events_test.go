// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package events

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var received = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const webhookChatBody = `{
  "message_id": "5ed5a3a6-1e9d-4b4c-9e6b-0a9b4e3f1c11",
  "broadcaster": {"is_anonymous": false, "user_id": 1, "username": "streamer", "channel_slug": "streamer"},
  "sender": {
    "is_anonymous": false, "user_id": 42, "username": "Viewer", "is_verified": true,
    "identity": {"username_color": "#FF00AA", "badges": [{"text": "Moderator", "type": "moderator"}]}
  },
  "content": "hi [emote:37226:KEKW]",
  "emotes": [{"emote_id": "37226", "positions": [{"s": 3, "e": 21}]}],
  "replies_to": {"message_id": "parent-1", "content": "hello", "sender": {"user_id": 7, "username": "other"}},
  "created_at": "2026-03-01T11:59:58Z"
}`

func TestParseWebhookChat(t *testing.T) {
	ev, err := ParseWebhook(KindChatMessage, []byte(webhookChatBody), received)
	require.NoError(t, err)

	msg, ok := ev.(*ChatMessage)
	require.True(t, ok)
	assert.Equal(t, "5ed5a3a6-1e9d-4b4c-9e6b-0a9b4e3f1c11", msg.TransportID())
	assert.Equal(t, ChannelWebhook, msg.Source())
	assert.Equal(t, "Viewer", msg.Sender.Username)
	assert.Equal(t, "#FF00AA", msg.Color)
	require.Len(t, msg.Badges, 1)
	assert.Equal(t, "moderator", msg.Badges[0].Type)
	require.Len(t, msg.Emotes, 1)
	assert.Equal(t, EmotePosition{Start: 3, End: 21}, msg.Emotes[0].Positions[0])
	require.NotNil(t, msg.RepliesTo)
	assert.Equal(t, "parent-1", msg.RepliesTo.MessageID)
	assert.Equal(t, time.Date(2026, 3, 1, 11, 59, 58, 0, time.UTC), msg.OccurredAt().UTC())
}

func TestParseWebhookGifts(t *testing.T) {
	body := `{
	  "broadcaster": {"user_id": 1, "username": "streamer"},
	  "gifter": {"is_anonymous": false, "user_id": 9, "username": "Generous"},
	  "giftees": [{"user_id": 10, "username": "Bob"}, {"user_id": 11, "username": "alice"}],
	  "created_at": "2026-03-01T11:59:59Z",
	  "expires_at": "2026-04-01T11:59:59Z"
	}`
	ev, err := ParseWebhook(KindSubscriptionGifts, []byte(body), received)
	require.NoError(t, err)

	gifts := ev.(*GiftedSubscriptions)
	assert.Equal(t, "generous", gifts.Gifter.Identity())
	require.Len(t, gifts.Recipients, 2)
	assert.Equal(t, "", gifts.TransportID(), "gifts share no identifier across channels")
}

func TestParseWebhookAnonymousGifter(t *testing.T) {
	body := `{"gifter": {"is_anonymous": true, "username": null}, "giftees": [{"username": "bob"}]}`
	ev, err := ParseWebhook(KindSubscriptionGifts, []byte(body), received)
	require.NoError(t, err)

	gifts := ev.(*GiftedSubscriptions)
	assert.Equal(t, AnonymousIdentity, gifts.Gifter.Identity())
	assert.Equal(t, received, gifts.OccurredAt(), "missing created_at falls back to receipt time")
}

func TestParseWebhookOtherKinds(t *testing.T) {
	tests := []struct {
		name  string
		kind  Kind
		body  string
		check func(t *testing.T, ev Event)
	}{
		{
			name: "ban with expiry",
			kind: KindUserBanned,
			body: `{"moderator": {"username": "mod"}, "banned_user": {"username": "troll"},
			        "metadata": {"reason": "spam", "created_at": "2026-03-01T11:00:00Z", "expires_at": "2026-03-01T11:10:00Z"}}`,
			check: func(t *testing.T, ev Event) {
				ban := ev.(*UserBanned)
				assert.Equal(t, "troll", ban.BannedUser.Username)
				assert.False(t, ban.Permanent)
				assert.Equal(t, "spam", ban.Reason)
			},
		},
		{
			name: "stream live",
			kind: KindStreamStatus,
			body: `{"broadcaster": {"username": "streamer"}, "is_live": true, "title": "Day 1",
			        "started_at": "2026-03-01T10:00:00Z", "ended_at": null}`,
			check: func(t *testing.T, ev Event) {
				status := ev.(*StreamStatus)
				assert.True(t, status.IsLive)
				assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), status.OccurredAt().UTC())
			},
		},
		{
			name: "follow",
			kind: KindFollow,
			body: `{"broadcaster": {"username": "streamer"}, "follower": {"username": "fan"}}`,
			check: func(t *testing.T, ev Event) {
				assert.Equal(t, "fan", ev.(*Follow).Follower.Username)
			},
		},
		{
			name: "renewal",
			kind: KindSubscriptionRenewal,
			body: `{"subscriber": {"username": "loyal"}, "duration": 3}`,
			check: func(t *testing.T, ev Event) {
				sub := ev.(*Subscription)
				assert.Equal(t, KindSubscriptionRenewal, sub.Kind())
				assert.Equal(t, 3, sub.Duration)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseWebhook(tt.kind, []byte(tt.body), received)
			require.NoError(t, err)
			tt.check(t, ev)
		})
	}
}

func TestParseWebhookErrors(t *testing.T) {
	_, err := ParseWebhook("channel.raid", []byte(`{}`), received)
	assert.True(t, errors.Is(err, ErrUnknownKind))

	_, err = ParseWebhook(KindChatMessage, []byte(`{not json`), received)
	assert.True(t, errors.Is(err, ErrMalformedPayload))

	_, err = ParseWebhook(KindChatMessage, []byte(`{"content": "no id"}`), received)
	assert.True(t, errors.Is(err, ErrMalformedPayload))

	_, err = ParseWebhook(KindSubscriptionGifts, []byte(`{"giftees": []}`), received)
	assert.True(t, errors.Is(err, ErrMalformedPayload))
}

func TestParseSocketChat(t *testing.T) {
	data := `{"id": "5ed5a3a6-1e9d-4b4c-9e6b-0a9b4e3f1c11", "chatroom_id": 1, "content": "gg [emote:1:a] [emote:1:a]",
	          "type": "message", "created_at": "2026-03-01T11:59:58+00:00",
	          "sender": {"id": 42, "username": "Viewer", "slug": "viewer", "identity": {"color": "#FF00AA", "badges": []}}}`

	ev, err := ParseSocket(SocketChatMessage, []byte(data), received)
	require.NoError(t, err)

	msg := ev.(*ChatMessage)
	assert.Equal(t, ChannelSocket, msg.Source())
	assert.Equal(t, "5ed5a3a6-1e9d-4b4c-9e6b-0a9b4e3f1c11", msg.TransportID())
	assert.Equal(t, "#FF00AA", msg.Color)
	require.Len(t, msg.Emotes, 1)
	assert.Len(t, msg.Emotes[0].Positions, 2)
	assert.Nil(t, msg.RepliesTo)
}

func TestParseSocketGifts(t *testing.T) {
	data := `{"chatroom_id": 1, "gifted_usernames": ["Bob", "alice"], "gifter_username": "Generous", "gifter_total": 12}`
	ev, err := ParseSocket(SocketGiftedSubscriptions, []byte(data), received)
	require.NoError(t, err)

	gifts := ev.(*GiftedSubscriptions)
	assert.Equal(t, ChannelSocket, gifts.Source())
	assert.Equal(t, received, gifts.OccurredAt())
	assert.Equal(t, "generous", gifts.Gifter.Identity())

	anon, err := ParseSocket(SocketGiftedSubscriptions, []byte(`{"gifted_usernames": ["x"], "gifter_username": "Anonymous"}`), received)
	require.NoError(t, err)
	assert.Equal(t, AnonymousIdentity, anon.(*GiftedSubscriptions).Gifter.Identity())
}

func TestParseGiftsDropRepeatedRecipients(t *testing.T) {
	ev, err := ParseSocket(SocketGiftedSubscriptions,
		[]byte(`{"gifted_usernames": ["alice", "Alice", " bob", "alice"], "gifter_username": "g"}`), received)
	require.NoError(t, err)
	recipients := ev.(*GiftedSubscriptions).Recipients
	require.Len(t, recipients, 2)
	assert.Equal(t, "alice", recipients[0].Username, "first occurrence is kept")
	assert.Equal(t, "bob", recipients[1].Identity())

	body := `{"gifter": {"username": "g"}, "giftees": [{"user_id": 10, "username": "Bob"}, {"user_id": 10, "username": "bob"}]}`
	ev, err = ParseWebhook(KindSubscriptionGifts, []byte(body), received)
	require.NoError(t, err)
	assert.Len(t, ev.(*GiftedSubscriptions).Recipients, 1)
}

func TestParseSocketBanAndStatus(t *testing.T) {
	ban, err := ParseSocket(SocketUserBanned, []byte(`{"id": "b1", "user": {"id": 5, "username": "troll"},
	    "banned_by": {"username": "mod"}, "permanent": true}`), received)
	require.NoError(t, err)
	assert.True(t, ban.(*UserBanned).Permanent)
	assert.Nil(t, ban.(*UserBanned).ExpiresAt)

	live, err := ParseSocket(SocketStreamerIsLive, []byte(`{"livestream": {"id": 1, "channel_id": 1,
	    "session_title": "Day 1", "created_at": "2026-03-01 10:00:00"}}`), received)
	require.NoError(t, err)
	status := live.(*StreamStatus)
	assert.True(t, status.IsLive)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), status.OccurredAt())

	stop, err := ParseSocket(SocketStopStreamBroadcast, []byte(`{"livestream": {"id": 1, "channel": {"id": 1}}}`), received)
	require.NoError(t, err)
	assert.False(t, stop.(*StreamStatus).IsLive)
	assert.Equal(t, received, stop.OccurredAt())
}

func TestParseSocketErrors(t *testing.T) {
	_, err := ParseSocket(`App\Events\PinnedMessageCreatedEvent`, []byte(`{}`), received)
	assert.True(t, errors.Is(err, ErrUnknownKind))

	_, err = ParseSocket(SocketChatMessage, []byte(`{"created_at": "soon"}`), received)
	assert.True(t, errors.Is(err, ErrMalformedPayload))
}

func TestSocketKind(t *testing.T) {
	kind, ok := SocketKind(SocketStopStreamBroadcast)
	assert.True(t, ok)
	assert.Equal(t, KindStreamStatus, kind)

	_, ok = SocketKind("pusher:pong")
	assert.False(t, ok)
}

func TestMetricLabelsBoundToKnownNames(t *testing.T) {
	assert.Equal(t, "channel.followed", KindLabel("channel.followed"))
	assert.Equal(t, UnknownLabel, KindLabel("channel.reward.redeemed"))
	assert.Equal(t, UnknownLabel, KindLabel(""))

	assert.Equal(t, SocketChatMessage, SocketEventLabel(SocketChatMessage))
	assert.Equal(t, UnknownLabel, SocketEventLabel(`App\Events\PinnedMessageCreatedEvent`))
}

func TestUserIdentity(t *testing.T) {
	assert.Equal(t, "bob", User{Username: "  BoB "}.Identity())
	assert.Equal(t, "slugged", User{Slug: "Slugged"}.Identity())
	assert.Equal(t, "id:12", User{ID: 12}.Identity())
	assert.Equal(t, AnonymousIdentity, User{Username: "hidden", IsAnonymous: true}.Identity())
}

func TestNotificationsExpandGifts(t *testing.T) {
	gifts := &GiftedSubscriptions{
		Channel:    ChannelWebhook,
		Gifter:     User{Username: "g"},
		Recipients: []User{{Username: "a"}, {Username: "b"}, {Username: "c"}},
		CreatedAt:  received,
	}

	out := Notifications(gifts)
	require.Len(t, out, 3)
	for i, n := range out {
		assert.Equal(t, NotifySubsGifted, n.Kind)
		assert.Equal(t, "subs-gifted.webhook", n.Topic())
		payload := n.Payload.(SubGift)
		assert.Equal(t, gifts.Recipients[i], payload.Recipient)
		assert.Equal(t, 3, payload.GiftCount)
	}
	assert.NotEqual(t, out[0].ID, out[1].ID)
}

func TestNotificationsOncePerDistinctRecipient(t *testing.T) {
	gifts := &GiftedSubscriptions{
		Channel:    ChannelSocket,
		Gifter:     User{Username: "g"},
		Recipients: []User{{Username: "alice"}, {Username: "Alice"}, {Username: "bob"}},
		CreatedAt:  received,
	}

	out := Notifications(gifts)
	require.Len(t, out, 2)
	for _, n := range out {
		assert.Equal(t, 2, n.Payload.(SubGift).GiftCount)
	}
}

func TestNotificationsSingle(t *testing.T) {
	msg := &ChatMessage{ID: "m1", Channel: ChannelSocket, SentAt: received}
	out := Notifications(msg)
	require.Len(t, out, 1)
	assert.Equal(t, NotifyChatMessage, out[0].Kind)
	assert.Equal(t, ChannelSocket, out[0].Source)
	assert.Equal(t, SchemaVersion, out[0].SchemaVersion)
	assert.Same(t, msg, out[0].Payload)
}
