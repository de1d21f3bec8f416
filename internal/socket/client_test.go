// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package socket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thejerf/suture/v4"
)

const chatEvent = `App\Events\ChatMessageEvent`

type delivery struct {
	event string
	raw   string
}

type recordingHandler struct {
	mu         sync.Mutex
	deliveries []delivery
	err        error
}

func (h *recordingHandler) HandleSocketDelivery(_ context.Context, event string, raw []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deliveries = append(h.deliveries, delivery{event: event, raw: string(raw)})
	return h.err
}

func (h *recordingHandler) all() []delivery {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]delivery(nil), h.deliveries...)
}

type fakePusher struct {
	srv         *httptest.Server
	connections atomic.Int32
}

func newFakePusher(t *testing.T, session func(conn *websocket.Conn)) *fakePusher {
	t.Helper()
	p := &fakePusher{}
	upgrader := websocket.Upgrader{}
	p.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		p.connections.Add(1)
		session(conn)
	}))
	t.Cleanup(p.srv.Close)
	return p
}

func (p *fakePusher) url() string {
	return "ws" + strings.TrimPrefix(p.srv.URL, "http")
}

func writeJSON(conn *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func establish(conn *websocket.Conn, activitySeconds int) error {
	data, err := json.Marshal(connectionEstablished{SocketID: "123.456", ActivityTimeout: activitySeconds})
	if err != nil {
		return err
	}
	return writeJSON(conn, map[string]interface{}{"event": eventConnectionEstablished, "data": string(data)})
}

func readFrame(conn *websocket.Conn) (*frame, error) {
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var f frame
	if err := json.Unmarshal(msg, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func testConfig(url string) Config {
	cfg := DefaultConfig()
	cfg.URL = url
	cfg.ChatroomID = 7
	cfg.ChannelID = 9
	cfg.HandshakeTimeout = time.Second
	cfg.ReconnectMin = 5 * time.Millisecond
	cfg.ReconnectMax = 20 * time.Millisecond
	cfg.DialsPerMinute = 6000
	return cfg
}

func serve(t *testing.T, c *Client) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Serve(ctx) }()
	t.Cleanup(cancel)
	return cancel, errCh
}

func TestClient_SubscribesAndDelivers(t *testing.T) {
	subscribed := make(chan string, 4)
	replies := make(chan string, 4)
	chat := `{"id":"m-1","chatroom_id":7,"content":"hi"}`

	p := newFakePusher(t, func(conn *websocket.Conn) {
		if establish(conn, 120) != nil {
			return
		}
		for i := 0; i < 2; i++ {
			f, err := readFrame(conn)
			if err != nil {
				return
			}
			var d subscribeData
			if f.Event == eventSubscribe && f.decodeData(&d) == nil {
				subscribed <- d.Channel
			}
		}
		_ = writeJSON(conn, map[string]interface{}{"event": eventSubscriptionSucceeded, "channel": "chatrooms.7.v2", "data": "{}"})
		_ = writeJSON(conn, map[string]interface{}{"event": eventPing, "data": map[string]interface{}{}})
		if f, err := readFrame(conn); err == nil {
			replies <- f.Event
		}
		_ = writeJSON(conn, map[string]interface{}{"event": chatEvent, "channel": "chatrooms.7.v2", "data": chat})
		_ = writeJSON(conn, map[string]interface{}{"event": "App\\Events\\Custom", "data": map[string]int{"n": 1}})
		drain(conn)
	})

	handler := &recordingHandler{}
	client := NewClient(testConfig(p.url()), handler)
	cancel, errCh := serve(t, client)

	assert.Equal(t, "chatrooms.7.v2", <-subscribed)
	assert.Equal(t, "channel.9", <-subscribed)
	select {
	case ev := <-replies:
		assert.Equal(t, eventPong, ev)
	case <-time.After(2 * time.Second):
		t.Fatal("no pong received")
	}

	require.Eventually(t, func() bool { return len(handler.all()) == 2 }, 2*time.Second, 10*time.Millisecond)
	got := handler.all()
	assert.Equal(t, delivery{event: chatEvent, raw: chat}, got[0], "string encoded data is unwrapped")
	assert.JSONEq(t, `{"n":1}`, got[1].raw, "object data is passed through")

	assert.True(t, client.Connected())
	assert.Equal(t, "123.456", client.SocketID())

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	assert.False(t, client.Connected())
}

func TestClient_HandlerErrorsDoNotDropConnection(t *testing.T) {
	p := newFakePusher(t, func(conn *websocket.Conn) {
		if establish(conn, 120) != nil {
			return
		}
		for i := 0; i < 3; i++ {
			_ = writeJSON(conn, map[string]interface{}{"event": chatEvent, "data": `{"id":"bad"}`})
		}
		drain(conn)
	})

	handler := &recordingHandler{err: errors.New("malformed delivery")}
	client := NewClient(testConfig(p.url()), handler)
	serve(t, client)

	require.Eventually(t, func() bool { return len(handler.all()) == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), p.connections.Load())
}

func TestClient_ReconnectsAfterDisconnect(t *testing.T) {
	p := newFakePusher(t, func(conn *websocket.Conn) {
		_ = establish(conn, 120)
	})

	client := NewClient(testConfig(p.url()), &recordingHandler{})
	serve(t, client)

	require.Eventually(t, func() bool { return p.connections.Load() >= 3 }, 3*time.Second, 10*time.Millisecond)
}

func TestClient_ReconnectsAfterBadHandshake(t *testing.T) {
	p := newFakePusher(t, func(conn *websocket.Conn) {
		_ = writeJSON(conn, map[string]interface{}{"event": "hello"})
		drain(conn)
	})

	client := NewClient(testConfig(p.url()), &recordingHandler{})
	serve(t, client)

	require.Eventually(t, func() bool { return p.connections.Load() >= 2 }, 3*time.Second, 10*time.Millisecond)
	assert.False(t, client.Connected())
}

func TestClient_FatalPusherErrorStopsService(t *testing.T) {
	p := newFakePusher(t, func(conn *websocket.Conn) {
		_ = writeJSON(conn, map[string]interface{}{
			"event": eventError,
			"data":  map[string]interface{}{"code": 4001, "message": "Application does not exist"},
		})
		drain(conn)
	})

	client := NewClient(testConfig(p.url()), &recordingHandler{})
	_, errCh := serve(t, client)

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, suture.ErrDoNotRestart)
		var perr *PusherError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, 4001, perr.Code)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve kept running after a fatal pusher error")
	}
	assert.Equal(t, int32(1), p.connections.Load())
}

func TestClient_SendsActivityPing(t *testing.T) {
	pings := make(chan struct{}, 1)
	p := newFakePusher(t, func(conn *websocket.Conn) {
		if establish(conn, 120) != nil {
			return
		}
		for {
			f, err := readFrame(conn)
			if err != nil {
				return
			}
			if f.Event == eventPing {
				select {
				case pings <- struct{}{}:
				default:
				}
				_ = writeJSON(conn, map[string]interface{}{"event": eventPong, "data": "{}"})
			}
		}
	})

	cfg := testConfig(p.url())
	cfg.ActivityTimeout = 50 * time.Millisecond
	client := NewClient(cfg, &recordingHandler{})
	serve(t, client)

	select {
	case <-pings:
	case <-time.After(2 * time.Second):
		t.Fatal("client never pinged an idle connection")
	}
	assert.Equal(t, int32(1), p.connections.Load(), "answered pings keep the session alive")
}

func TestClient_ImplementsSutureService(t *testing.T) {
	var _ suture.Service = (*Client)(nil)
	assert.Equal(t, "socket-client", NewClient(DefaultConfig(), &recordingHandler{}).String())
}
