// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package events

import (
	"bytes"
	"fmt"
	"regexp"
	"time"

	"github.com/goccy/go-json"
)

// socketTime accepts the timestamp layouts seen on the socket feed.
type socketTime struct {
	time.Time
}

var socketTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000000Z",
	"2006-01-02 15:04:05",
}

func (t *socketTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	for _, layout := range socketTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

type socketUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Slug     string `json:"slug"`
	Identity *struct {
		Color  string  `json:"color"`
		Badges []Badge `json:"badges"`
	} `json:"identity"`
}

func (u socketUser) user() User {
	return User{ID: u.ID, Username: u.Username, Slug: u.Slug}
}

type socketChat struct {
	ID         string     `json:"id"`
	ChatroomID int64      `json:"chatroom_id"`
	Content    string     `json:"content"`
	Type       string     `json:"type"`
	CreatedAt  socketTime `json:"created_at"`
	Sender     socketUser `json:"sender"`
	Metadata   *struct {
		OriginalSender  socketUser `json:"original_sender"`
		OriginalMessage struct {
			ID      string `json:"id"`
			Content string `json:"content"`
		} `json:"original_message"`
	} `json:"metadata"`
}

type socketGifts struct {
	ChatroomID      int64    `json:"chatroom_id"`
	GiftedUsernames []string `json:"gifted_usernames"`
	GifterUsername  string   `json:"gifter_username"`
	GifterTotal     int      `json:"gifter_total"`
}

type socketBan struct {
	ID        string     `json:"id"`
	User      socketUser `json:"user"`
	BannedBy  socketUser `json:"banned_by"`
	Permanent bool       `json:"permanent"`
	Duration  int        `json:"duration"`
	ExpiresAt socketTime `json:"expires_at"`
}

type socketLivestream struct {
	Livestream struct {
		ID           int64      `json:"id"`
		ChannelID    int64      `json:"channel_id"`
		SessionTitle string     `json:"session_title"`
		CreatedAt    socketTime `json:"created_at"`
		Channel      *struct {
			ID int64 `json:"id"`
		} `json:"channel"`
	} `json:"livestream"`
}

// anonymousGifter is how the socket feed names a hidden gifter.
const anonymousGifter = "Anonymous"

// emoteToken matches inline emote references such as [emote:37226:KEKW].
var emoteToken = regexp.MustCompile(`\[emote:(\d+):([^\]]*)\]`)

// ParseSocket decodes the data field of a socket event into a normalized
// event. receivedAt stands in for timestamps the payload does not carry.
func ParseSocket(event string, data []byte, receivedAt time.Time) (Event, error) {
	switch event {
	case SocketChatMessage:
		var p socketChat
		if err := decode(data, &p); err != nil {
			return nil, err
		}
		if p.ID == "" {
			return nil, fmt.Errorf("%w: chat message without id", ErrMalformedPayload)
		}
		msg := &ChatMessage{
			ID:      p.ID,
			Channel: ChannelSocket,
			Sender:  p.Sender.user(),
			Content: p.Content,
			Emotes:  ExtractEmotes(p.Content),
			SentAt:  p.CreatedAt.Time,
		}
		if msg.SentAt.IsZero() {
			msg.SentAt = receivedAt
		}
		if p.Sender.Identity != nil {
			msg.Color = p.Sender.Identity.Color
			msg.Badges = p.Sender.Identity.Badges
		}
		if p.Type == "reply" && p.Metadata != nil {
			msg.RepliesTo = &ChatReply{
				MessageID: p.Metadata.OriginalMessage.ID,
				Content:   p.Metadata.OriginalMessage.Content,
				Sender:    p.Metadata.OriginalSender.user(),
			}
		}
		return msg, nil

	case SocketGiftedSubscriptions:
		var p socketGifts
		if err := decode(data, &p); err != nil {
			return nil, err
		}
		if len(p.GiftedUsernames) == 0 {
			return nil, fmt.Errorf("%w: gift without gifted_usernames", ErrMalformedPayload)
		}
		recipients := make([]User, len(p.GiftedUsernames))
		for i, name := range p.GiftedUsernames {
			recipients[i] = User{Username: name}
		}
		gifter := User{Username: p.GifterUsername}
		if p.GifterUsername == "" || p.GifterUsername == anonymousGifter {
			gifter = User{IsAnonymous: true}
		}
		return &GiftedSubscriptions{
			Channel:    ChannelSocket,
			Gifter:     gifter,
			Recipients: DistinctUsers(recipients),
			CreatedAt:  receivedAt,
		}, nil

	case SocketUserBanned:
		var p socketBan
		if err := decode(data, &p); err != nil {
			return nil, err
		}
		if p.User.Username == "" && p.User.ID == 0 {
			return nil, fmt.Errorf("%w: ban without user", ErrMalformedPayload)
		}
		ban := &UserBanned{
			Channel:    ChannelSocket,
			Moderator:  p.BannedBy.user(),
			BannedUser: p.User.user(),
			Permanent:  p.Permanent,
			CreatedAt:  receivedAt,
		}
		if !p.Permanent && !p.ExpiresAt.IsZero() {
			expires := p.ExpiresAt.Time
			ban.ExpiresAt = &expires
		}
		return ban, nil

	case SocketStreamerIsLive, SocketStopStreamBroadcast:
		var p socketLivestream
		if err := decode(data, &p); err != nil {
			return nil, err
		}
		status := &StreamStatus{
			Channel:    ChannelSocket,
			IsLive:     event == SocketStreamerIsLive,
			Title:      p.Livestream.SessionTitle,
			ReceivedAt: receivedAt,
		}
		if status.IsLive && !p.Livestream.CreatedAt.IsZero() {
			started := p.Livestream.CreatedAt.Time
			status.StartedAt = &started
		}
		return status, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, event)
}

// SocketKind maps a socket event name to its Kind. ok is false for events
// the socket channel reports that are not reconciled.
func SocketKind(event string) (Kind, bool) {
	switch event {
	case SocketChatMessage:
		return KindChatMessage, true
	case SocketGiftedSubscriptions:
		return KindSubscriptionGifts, true
	case SocketUserBanned:
		return KindUserBanned, true
	case SocketStreamerIsLive, SocketStopStreamBroadcast:
		return KindStreamStatus, true
	}
	return "", false
}

// ExtractEmotes lists the inline emote tokens in chat content with their
// inclusive byte positions.
func ExtractEmotes(content string) []Emote {
	matches := emoteToken.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return nil
	}

	byID := make(map[string]int)
	var out []Emote
	for _, m := range matches {
		id := content[m[2]:m[3]]
		pos := EmotePosition{Start: m[0], End: m[1] - 1}
		if i, ok := byID[id]; ok {
			out[i].Positions = append(out[i].Positions, pos)
			continue
		}
		byID[id] = len(out)
		out = append(out, Emote{
			ID:        id,
			Name:      content[m[4]:m[5]],
			Positions: []EmotePosition{pos},
		})
	}
	return out
}
