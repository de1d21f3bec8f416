// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package socket

import (
	"bytes"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Pusher protocol events.
const (
	eventConnectionEstablished = "pusher:connection_established"
	eventSubscribe             = "pusher:subscribe"
	eventSubscriptionSucceeded = "pusher_internal:subscription_succeeded"
	eventPing                  = "pusher:ping"
	eventPong                  = "pusher:pong"
	eventError                 = "pusher:error"
)

// frame is one Pusher message. Application events carry their payload as a
// JSON string in Data; protocol events use an object.
type frame struct {
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data,omitempty"`
	Channel string          `json:"channel,omitempty"`
}

type connectionEstablished struct {
	SocketID        string `json:"socket_id"`
	ActivityTimeout int    `json:"activity_timeout"`
}

type subscribeData struct {
	Auth    string `json:"auth"`
	Channel string `json:"channel"`
}

// PusherError is a pusher:error frame. Codes 4000-4099 mean the client must
// not reconnect, 4100-4199 reconnect after a pause, 4200-4299 reconnect at
// once.
type PusherError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *PusherError) Error() string {
	return fmt.Sprintf("pusher error %d: %s", e.Code, e.Message)
}

// Fatal reports whether the server asked the client not to reconnect.
func (e *PusherError) Fatal() bool {
	return e.Code >= 4000 && e.Code < 4100
}

// RetryAfter is the minimum pause before reconnecting.
func (e *PusherError) RetryAfter() time.Duration {
	if e.Code >= 4100 && e.Code < 4200 {
		return time.Second
	}
	return 0
}

// payload unwraps the string encoding used for event data.
func (f *frame) payload() ([]byte, error) {
	data := bytes.TrimSpace(f.Data)
	if len(data) == 0 || data[0] != '"' {
		return data, nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode %s data: %w", f.Event, err)
	}
	return []byte(s), nil
}

// decodeData decodes the frame payload into v, string encoded or not.
func (f *frame) decodeData(v interface{}) error {
	data, err := f.payload()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func encodeFrame(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(frame{Event: event, Data: raw})
}
