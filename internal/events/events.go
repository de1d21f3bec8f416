// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package events

import (
	"strconv"
	"strings"
	"time"
)

// Kind identifies a platform event type using the webhook naming scheme.
// Socket events are mapped onto the same kinds by ParseSocket.
type Kind string

const (
	KindChatMessage         Kind = "chat.message.sent"
	KindSubscriptionGifts   Kind = "channel.subscription.gifts"
	KindUserBanned          Kind = "moderation.banned"
	KindStreamStatus        Kind = "livestream.status.updated"
	KindFollow              Kind = "channel.followed"
	KindSubscriptionNew     Kind = "channel.subscription.new"
	KindSubscriptionRenewal Kind = "channel.subscription.renewal"
)

// UnknownLabel stands in for unrecognized event names in metric labels.
const UnknownLabel = "unknown"

// Known reports whether k is a kind ParseWebhook understands.
func (k Kind) Known() bool {
	switch k {
	case KindChatMessage, KindSubscriptionGifts, KindUserBanned, KindStreamStatus,
		KindFollow, KindSubscriptionNew, KindSubscriptionRenewal:
		return true
	}
	return false
}

// KindLabel returns name for use as a metric label when it is a known
// kind, and UnknownLabel otherwise.
func KindLabel(name string) string {
	if Kind(name).Known() {
		return name
	}
	return UnknownLabel
}

// SocketEventLabel returns event for use as a metric label when SocketKind
// maps it, and UnknownLabel otherwise.
func SocketEventLabel(event string) string {
	if _, ok := SocketKind(event); ok {
		return event
	}
	return UnknownLabel
}

// Socket event names as published on the Pusher channels.
const (
	SocketChatMessage         = `App\Events\ChatMessageEvent`
	SocketGiftedSubscriptions = `App\Events\GiftedSubscriptionsEvent`
	SocketUserBanned          = `App\Events\UserBannedEvent`
	SocketStreamerIsLive      = `App\Events\StreamerIsLive`
	SocketStopStreamBroadcast = `App\Events\StopStreamBroadcast`
)

// Channel names the transport an event arrived on.
type Channel string

const (
	// ChannelWebhook is the authoritative, richer and slower transport.
	ChannelWebhook Channel = "webhook"
	// ChannelSocket is the fast transport with thinner payloads.
	ChannelSocket Channel = "socket"
)

// Event is a channel-agnostic record produced by a parser.
type Event interface {
	Kind() Kind
	Source() Channel
	// TransportID returns the provider identifier shared by both channels,
	// or "" when the kind carries none.
	TransportID() string
	// OccurredAt is the provider timestamp when available, otherwise the
	// time the record was received.
	OccurredAt() time.Time
}

// User is a platform account as seen in event payloads.
type User struct {
	ID             int64  `json:"user_id,omitempty"`
	Username       string `json:"username"`
	Slug           string `json:"slug,omitempty"`
	IsAnonymous    bool   `json:"is_anonymous,omitempty"`
	IsVerified     bool   `json:"is_verified,omitempty"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

// AnonymousIdentity is the canonical identity of a hidden gifter.
const AnonymousIdentity = "anonymous"

// Identity returns the canonical identity used in content fingerprints:
// the lowercased, trimmed username, or the slug or id when it is missing.
func (u User) Identity() string {
	if u.IsAnonymous {
		return AnonymousIdentity
	}
	if name := CanonicalName(u.Username); name != "" {
		return name
	}
	if slug := CanonicalName(u.Slug); slug != "" {
		return slug
	}
	if u.ID != 0 {
		return "id:" + strconv.FormatInt(u.ID, 10)
	}
	return AnonymousIdentity
}

// DistinctUsers returns users with repeated identities removed, keeping
// the first occurrence of each.
func DistinctUsers(users []User) []User {
	seen := make(map[string]struct{}, len(users))
	out := make([]User, 0, len(users))
	for _, u := range users {
		id := u.Identity()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, u)
	}
	return out
}

// CanonicalName lowercases and trims a username.
func CanonicalName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Badge is a chat badge attached to a sender.
type Badge struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Count int    `json:"count,omitempty"`
}

// EmotePosition is an inclusive byte range inside message content.
type EmotePosition struct {
	Start int `json:"s"`
	End   int `json:"e"`
}

// Emote is a platform emote referenced by a chat message.
type Emote struct {
	ID        string          `json:"emote_id"`
	Name      string          `json:"name,omitempty"`
	Positions []EmotePosition `json:"positions,omitempty"`
}

// ChatReply references the message a chat message answers.
type ChatReply struct {
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
	Sender    User   `json:"sender"`
}

// ChatMessage is a chat message sent in a broadcaster's chatroom.
type ChatMessage struct {
	ID          string     `json:"message_id"`
	Channel     Channel    `json:"channel"`
	Broadcaster User       `json:"broadcaster"`
	Sender      User       `json:"sender"`
	Color       string     `json:"color,omitempty"`
	Badges      []Badge    `json:"badges,omitempty"`
	Content     string     `json:"content"`
	Emotes      []Emote    `json:"emotes,omitempty"`
	RepliesTo   *ChatReply `json:"replies_to,omitempty"`
	SentAt      time.Time  `json:"sent_at"`
}

func (m *ChatMessage) Kind() Kind            { return KindChatMessage }
func (m *ChatMessage) Source() Channel       { return m.Channel }
func (m *ChatMessage) TransportID() string   { return m.ID }
func (m *ChatMessage) OccurredAt() time.Time { return m.SentAt }

// GiftedSubscriptions is one gifting action covering one or more recipients.
type GiftedSubscriptions struct {
	Channel     Channel   `json:"channel"`
	Broadcaster User      `json:"broadcaster"`
	Gifter      User      `json:"gifter"`
	Recipients  []User    `json:"recipients"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

func (g *GiftedSubscriptions) Kind() Kind            { return KindSubscriptionGifts }
func (g *GiftedSubscriptions) Source() Channel       { return g.Channel }
func (g *GiftedSubscriptions) TransportID() string   { return "" }
func (g *GiftedSubscriptions) OccurredAt() time.Time { return g.CreatedAt }

// UserBanned is a ban or timeout issued in a chatroom.
type UserBanned struct {
	Channel     Channel    `json:"channel"`
	Broadcaster User       `json:"broadcaster"`
	Moderator   User       `json:"moderator"`
	BannedUser  User       `json:"banned_user"`
	Reason      string     `json:"reason,omitempty"`
	Permanent   bool       `json:"permanent"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

func (b *UserBanned) Kind() Kind            { return KindUserBanned }
func (b *UserBanned) Source() Channel       { return b.Channel }
func (b *UserBanned) TransportID() string   { return "" }
func (b *UserBanned) OccurredAt() time.Time { return b.CreatedAt }

// StreamStatus reports a livestream starting or ending.
type StreamStatus struct {
	Channel     Channel    `json:"channel"`
	Broadcaster User       `json:"broadcaster"`
	IsLive      bool       `json:"is_live"`
	Title       string     `json:"title,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	ReceivedAt  time.Time  `json:"received_at"`
}

func (s *StreamStatus) Kind() Kind          { return KindStreamStatus }
func (s *StreamStatus) Source() Channel     { return s.Channel }
func (s *StreamStatus) TransportID() string { return "" }

// OccurredAt prefers the transition time reported by the platform.
func (s *StreamStatus) OccurredAt() time.Time {
	if s.IsLive && s.StartedAt != nil {
		return *s.StartedAt
	}
	if !s.IsLive && s.EndedAt != nil {
		return *s.EndedAt
	}
	return s.ReceivedAt
}

// Follow is a new channel follower. Only the webhook channel reports it.
type Follow struct {
	Broadcaster User      `json:"broadcaster"`
	Follower    User      `json:"follower"`
	ReceivedAt  time.Time `json:"received_at"`
}

func (f *Follow) Kind() Kind            { return KindFollow }
func (f *Follow) Source() Channel       { return ChannelWebhook }
func (f *Follow) TransportID() string   { return "" }
func (f *Follow) OccurredAt() time.Time { return f.ReceivedAt }

// Subscription is a new or renewed paid subscription. Only the webhook
// channel reports it.
type Subscription struct {
	Broadcaster User      `json:"broadcaster"`
	Subscriber  User      `json:"subscriber"`
	Duration    int       `json:"duration"`
	Renewal     bool      `json:"renewal"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

func (s *Subscription) Kind() Kind {
	if s.Renewal {
		return KindSubscriptionRenewal
	}
	return KindSubscriptionNew
}
func (s *Subscription) Source() Channel       { return ChannelWebhook }
func (s *Subscription) TransportID() string   { return "" }
func (s *Subscription) OccurredAt() time.Time { return s.CreatedAt }
