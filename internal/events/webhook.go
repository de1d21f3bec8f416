// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package events

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// webhookUser mirrors the user object embedded in webhook payloads.
type webhookUser struct {
	IsAnonymous    bool    `json:"is_anonymous"`
	UserID         int64   `json:"user_id"`
	Username       *string `json:"username"`
	IsVerified     bool    `json:"is_verified"`
	ProfilePicture string  `json:"profile_picture"`
	ChannelSlug    string  `json:"channel_slug"`
	Identity       *struct {
		UsernameColor string  `json:"username_color"`
		Badges        []Badge `json:"badges"`
	} `json:"identity"`
}

func (u *webhookUser) user() User {
	if u == nil {
		return User{IsAnonymous: true}
	}
	out := User{
		ID:             u.UserID,
		Slug:           u.ChannelSlug,
		IsAnonymous:    u.IsAnonymous,
		IsVerified:     u.IsVerified,
		ProfilePicture: u.ProfilePicture,
	}
	if u.Username != nil {
		out.Username = *u.Username
	}
	return out
}

type webhookChat struct {
	MessageID   string       `json:"message_id"`
	Broadcaster *webhookUser `json:"broadcaster"`
	Sender      *webhookUser `json:"sender"`
	Content     string       `json:"content"`
	Emotes      []Emote      `json:"emotes"`
	CreatedAt   *time.Time   `json:"created_at"`
	RepliesTo   *struct {
		MessageID string       `json:"message_id"`
		Content   string       `json:"content"`
		Sender    *webhookUser `json:"sender"`
	} `json:"replies_to"`
}

type webhookGifts struct {
	Broadcaster *webhookUser  `json:"broadcaster"`
	Gifter      *webhookUser  `json:"gifter"`
	Giftees     []webhookUser `json:"giftees"`
	CreatedAt   *time.Time    `json:"created_at"`
	ExpiresAt   *time.Time    `json:"expires_at"`
}

type webhookBan struct {
	Broadcaster *webhookUser `json:"broadcaster"`
	Moderator   *webhookUser `json:"moderator"`
	BannedUser  *webhookUser `json:"banned_user"`
	Metadata    struct {
		Reason    string     `json:"reason"`
		CreatedAt *time.Time `json:"created_at"`
		ExpiresAt *time.Time `json:"expires_at"`
	} `json:"metadata"`
}

type webhookStatus struct {
	Broadcaster *webhookUser `json:"broadcaster"`
	IsLive      bool         `json:"is_live"`
	Title       string       `json:"title"`
	StartedAt   *time.Time   `json:"started_at"`
	EndedAt     *time.Time   `json:"ended_at"`
}

type webhookFollow struct {
	Broadcaster *webhookUser `json:"broadcaster"`
	Follower    *webhookUser `json:"follower"`
}

type webhookSubscription struct {
	Broadcaster *webhookUser `json:"broadcaster"`
	Subscriber  *webhookUser `json:"subscriber"`
	Duration    int          `json:"duration"`
	CreatedAt   *time.Time   `json:"created_at"`
	ExpiresAt   *time.Time   `json:"expires_at"`
}

// ParseWebhook decodes a verified webhook body into a normalized event.
// receivedAt stands in for timestamps the payload does not carry.
func ParseWebhook(kind Kind, raw []byte, receivedAt time.Time) (Event, error) {
	switch kind {
	case KindChatMessage:
		var p webhookChat
		if err := decode(raw, &p); err != nil {
			return nil, err
		}
		if p.MessageID == "" {
			return nil, fmt.Errorf("%w: chat message without message_id", ErrMalformedPayload)
		}
		msg := &ChatMessage{
			ID:          p.MessageID,
			Channel:     ChannelWebhook,
			Broadcaster: p.Broadcaster.user(),
			Sender:      p.Sender.user(),
			Content:     p.Content,
			Emotes:      p.Emotes,
			SentAt:      timeOr(p.CreatedAt, receivedAt),
		}
		if p.Sender != nil && p.Sender.Identity != nil {
			msg.Color = p.Sender.Identity.UsernameColor
			msg.Badges = p.Sender.Identity.Badges
		}
		if p.RepliesTo != nil {
			msg.RepliesTo = &ChatReply{
				MessageID: p.RepliesTo.MessageID,
				Content:   p.RepliesTo.Content,
				Sender:    p.RepliesTo.Sender.user(),
			}
		}
		return msg, nil

	case KindSubscriptionGifts:
		var p webhookGifts
		if err := decode(raw, &p); err != nil {
			return nil, err
		}
		if len(p.Giftees) == 0 {
			return nil, fmt.Errorf("%w: gift without giftees", ErrMalformedPayload)
		}
		recipients := make([]User, len(p.Giftees))
		for i := range p.Giftees {
			recipients[i] = p.Giftees[i].user()
		}
		return &GiftedSubscriptions{
			Channel:     ChannelWebhook,
			Broadcaster: p.Broadcaster.user(),
			Gifter:      p.Gifter.user(),
			Recipients:  DistinctUsers(recipients),
			CreatedAt:   timeOr(p.CreatedAt, receivedAt),
			ExpiresAt:   timeOr(p.ExpiresAt, time.Time{}),
		}, nil

	case KindUserBanned:
		var p webhookBan
		if err := decode(raw, &p); err != nil {
			return nil, err
		}
		if p.BannedUser == nil {
			return nil, fmt.Errorf("%w: ban without banned_user", ErrMalformedPayload)
		}
		return &UserBanned{
			Channel:     ChannelWebhook,
			Broadcaster: p.Broadcaster.user(),
			Moderator:   p.Moderator.user(),
			BannedUser:  p.BannedUser.user(),
			Reason:      p.Metadata.Reason,
			Permanent:   p.Metadata.ExpiresAt == nil,
			CreatedAt:   timeOr(p.Metadata.CreatedAt, receivedAt),
			ExpiresAt:   p.Metadata.ExpiresAt,
		}, nil

	case KindStreamStatus:
		var p webhookStatus
		if err := decode(raw, &p); err != nil {
			return nil, err
		}
		return &StreamStatus{
			Channel:     ChannelWebhook,
			Broadcaster: p.Broadcaster.user(),
			IsLive:      p.IsLive,
			Title:       p.Title,
			StartedAt:   p.StartedAt,
			EndedAt:     p.EndedAt,
			ReceivedAt:  receivedAt,
		}, nil

	case KindFollow:
		var p webhookFollow
		if err := decode(raw, &p); err != nil {
			return nil, err
		}
		return &Follow{
			Broadcaster: p.Broadcaster.user(),
			Follower:    p.Follower.user(),
			ReceivedAt:  receivedAt,
		}, nil

	case KindSubscriptionNew, KindSubscriptionRenewal:
		var p webhookSubscription
		if err := decode(raw, &p); err != nil {
			return nil, err
		}
		return &Subscription{
			Broadcaster: p.Broadcaster.user(),
			Subscriber:  p.Subscriber.user(),
			Duration:    p.Duration,
			Renewal:     kind == KindSubscriptionRenewal,
			CreatedAt:   timeOr(p.CreatedAt, receivedAt),
			ExpiresAt:   timeOr(p.ExpiresAt, time.Time{}),
		}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func decode(raw []byte, v interface{}) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

func timeOr(t *time.Time, fallback time.Time) time.Time {
	if t == nil || t.IsZero() {
		return fallback
	}
	return *t
}
