// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package socket

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// DefaultURL is the public Pusher endpoint used by the provider's web client.
const DefaultURL = "wss://ws-us2.pusher.com/app/32cbd69e4b950bf97679?protocol=7&client=js&version=8.4.0&flash=false"

// Config controls the socket client.
type Config struct {
	Enabled    bool   `koanf:"enabled"`
	URL        string `koanf:"url"`
	ChatroomID int64  `koanf:"chatroom_id"`
	ChannelID  int64  `koanf:"channel_id"`

	HandshakeTimeout time.Duration `koanf:"handshake_timeout"`

	// ActivityTimeout is used until the server announces its own.
	ActivityTimeout time.Duration `koanf:"activity_timeout"`
	PongTimeout     time.Duration `koanf:"pong_timeout"`

	ReconnectMin time.Duration `koanf:"reconnect_min"`
	ReconnectMax time.Duration `koanf:"reconnect_max"`

	// DialsPerMinute caps connection attempts regardless of backoff.
	DialsPerMinute int `koanf:"dials_per_minute"`
}

// DefaultConfig returns the client defaults. Chatroom and channel ids have
// no sensible default.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		URL:              DefaultURL,
		HandshakeTimeout: 10 * time.Second,
		ActivityTimeout:  120 * time.Second,
		PongTimeout:      30 * time.Second,
		ReconnectMin:     time.Second,
		ReconnectMax:     32 * time.Second,
		DialsPerMinute:   12,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.URL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("url: %w", err))
	case u.Scheme != "ws" && u.Scheme != "wss":
		errs = append(errs, fmt.Errorf("url: scheme must be ws or wss, got %q", u.Scheme))
	}
	if c.ChatroomID <= 0 && c.ChannelID <= 0 {
		errs = append(errs, errors.New("at least one of chatroom_id and channel_id is required"))
	}
	if c.HandshakeTimeout <= 0 {
		errs = append(errs, errors.New("handshake_timeout must be positive"))
	}
	if c.ActivityTimeout <= 0 || c.PongTimeout <= 0 {
		errs = append(errs, errors.New("activity_timeout and pong_timeout must be positive"))
	}
	if c.ReconnectMin <= 0 || c.ReconnectMax < c.ReconnectMin {
		errs = append(errs, errors.New("reconnect_min must be positive and not above reconnect_max"))
	}
	if c.DialsPerMinute <= 0 {
		errs = append(errs, errors.New("dials_per_minute must be positive"))
	}
	return errors.Join(errs...)
}

// Channels returns the Pusher channels to subscribe to.
func (c Config) Channels() []string {
	var out []string
	if c.ChatroomID > 0 {
		out = append(out, fmt.Sprintf("chatrooms.%d.v2", c.ChatroomID))
	}
	if c.ChannelID > 0 {
		out = append(out, fmt.Sprintf("channel.%d", c.ChannelID))
	}
	return out
}
