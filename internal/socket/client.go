// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package socket

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
	"golang.org/x/time/rate"

	"github.com/tomtom215/streamrelay/internal/events"
	"github.com/tomtom215/streamrelay/internal/logging"
	"github.com/tomtom215/streamrelay/internal/metrics"
)

// Handler receives application events from the socket.
type Handler interface {
	HandleSocketDelivery(ctx context.Context, event string, raw []byte) error
}

// errHandshake marks a connection that never reached connection_established.
var errHandshake = errors.New("pusher handshake failed")

// Client is a Pusher protocol client for the provider's realtime feed.
//
// It keeps one connection open, subscribes to the configured chatroom and
// channel, answers keepalives and passes application events to the
// Handler. Lost connections are re-dialled with exponential backoff; dials
// are additionally paced by a token bucket so a flapping server cannot
// cause a dial storm.
type Client struct {
	cfg     Config
	handler Handler
	dialer  *websocket.Dialer
	limiter *rate.Limiter
	log     zerolog.Logger

	connected atomic.Bool

	mu       sync.Mutex
	socketID string
}

// NewClient creates a client. Call Serve to run it.
func NewClient(cfg Config, handler Handler) *Client {
	return &Client{
		cfg:     cfg,
		handler: handler,
		dialer: &websocket.Dialer{
			HandshakeTimeout:  cfg.HandshakeTimeout,
			EnableCompression: true,
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.DialsPerMinute)), 2),
		log:     logging.WithComponent("socket"),
	}
}

// Connected reports whether a subscribed session is active.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// SocketID returns the id assigned by the server for the current session.
func (c *Client) SocketID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.socketID
}

// String implements fmt.Stringer for suture logging.
func (c *Client) String() string {
	return "socket-client"
}

// Serve implements suture.Service. It runs until ctx is canceled, or until
// the server rejects the client with a non-retryable error, in which case
// the returned error wraps suture.ErrDoNotRestart.
func (c *Client) Serve(ctx context.Context) error {
	delay := c.cfg.ReconnectMin
	first := true

	for {
		if !first {
			metrics.RecordSocketReconnect()
			c.log.Info().Dur("delay", delay).Msg("Socket reconnecting")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		first = false

		if err := c.limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}

		established, err := c.runSession(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var perr *PusherError
		if errors.As(err, &perr) && perr.Fatal() {
			c.log.Error().Err(err).Msg("Socket rejected by server, not reconnecting")
			return fmt.Errorf("%w: %w", suture.ErrDoNotRestart, err)
		}
		c.log.Warn().Err(err).Bool("established", established).Msg("Socket session ended")

		if established {
			delay = c.cfg.ReconnectMin
		} else {
			delay = min(delay*2, c.cfg.ReconnectMax)
		}
		if perr != nil && perr.RetryAfter() > delay {
			delay = perr.RetryAfter()
		}
	}
}

// runSession dials, subscribes and reads until the connection fails. It
// reports whether the handshake completed.
func (c *Client) runSession(ctx context.Context) (bool, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return false, fmt.Errorf("websocket dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return false, fmt.Errorf("websocket dial: %w", err)
	}

	s := &session{client: c, conn: conn}
	defer s.close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	activity, err := s.handshake()
	if err != nil {
		return false, err
	}
	if err := s.subscribe(c.cfg.Channels()); err != nil {
		return true, err
	}

	c.connected.Store(true)
	metrics.SetSocketConnected(true)
	defer func() {
		c.connected.Store(false)
		metrics.SetSocketConnected(false)
	}()

	return true, s.readLoop(ctx, activity)
}

// session is one websocket connection. gorilla/websocket allows a single
// concurrent writer, so writes go through writeMu.
type session struct {
	client  *Client
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (s *session) close() {
	s.writeMu.Lock()
	_ = s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	s.writeMu.Unlock()
	_ = s.conn.Close()
}

func (s *session) send(event string, data interface{}) error {
	msg, err := encodeFrame(event, data)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.client.cfg.PongTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, msg)
}

func (s *session) read(deadline time.Duration) (*frame, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(deadline)); err != nil {
		return nil, err
	}
	_, message, err := s.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var f frame
	if err := json.Unmarshal(message, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return &f, nil
}

// handshake waits for connection_established and returns the activity
// timeout to use for the session.
func (s *session) handshake() (time.Duration, error) {
	f, err := s.read(s.client.cfg.HandshakeTimeout)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errHandshake, err)
	}
	if f.Event == eventError {
		return 0, decodePusherError(f)
	}
	if f.Event != eventConnectionEstablished {
		return 0, fmt.Errorf("%w: unexpected first event %q", errHandshake, f.Event)
	}

	var est connectionEstablished
	if err := f.decodeData(&est); err != nil {
		return 0, fmt.Errorf("%w: %w", errHandshake, err)
	}

	s.client.mu.Lock()
	s.client.socketID = est.SocketID
	s.client.mu.Unlock()

	activity := s.client.cfg.ActivityTimeout
	if est.ActivityTimeout > 0 {
		announced := time.Duration(est.ActivityTimeout) * time.Second
		activity = min(activity, announced)
	}
	s.client.log.Info().Str("socket_id", est.SocketID).Dur("activity_timeout", activity).Msg("Socket connected")
	return activity, nil
}

func (s *session) subscribe(channels []string) error {
	for _, ch := range channels {
		if err := s.send(eventSubscribe, subscribeData{Channel: ch}); err != nil {
			return fmt.Errorf("subscribe %s: %w", ch, err)
		}
	}
	return nil
}

// readLoop dispatches frames until the connection fails. A pusher:ping is
// sent every activity interval; the server's pong (or any other frame)
// must arrive within the pong timeout after that.
func (s *session) readLoop(ctx context.Context, activity time.Duration) error {
	stop := make(chan struct{})
	defer close(stop)
	go s.pingLoop(activity, stop)

	for {
		f, err := s.read(activity + s.client.cfg.PongTimeout)
		if err != nil {
			return err
		}
		s.dispatch(ctx, f)
		if f.Event == eventError {
			return decodePusherError(f)
		}
	}
}

func (s *session) pingLoop(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := s.send(eventPing, struct{}{}); err != nil {
				s.client.log.Warn().Err(err).Msg("Socket ping failed")
				// Unblocks the reader.
				_ = s.conn.Close()
				return
			}
		}
	}
}

func (s *session) dispatch(ctx context.Context, f *frame) {
	log := s.client.log
	switch {
	case f.Event == eventPing:
		if err := s.send(eventPong, struct{}{}); err != nil {
			log.Warn().Err(err).Msg("Socket pong failed")
		}
	case f.Event == eventPong:
	case f.Event == eventSubscriptionSucceeded:
		log.Info().Str("channel", f.Channel).Msg("Socket subscribed")
	case f.Event == eventError:
	case strings.HasPrefix(f.Event, "pusher"):
		log.Debug().Str("event", f.Event).Msg("Socket protocol event ignored")
	default:
		metrics.RecordSocketMessage(events.SocketEventLabel(f.Event))
		data, err := f.payload()
		if err != nil {
			log.Warn().Err(err).Str("event", f.Event).Msg("Socket event data undecodable")
			return
		}
		ctx = logging.ContextWithDelivery(ctx, logging.Delivery{Channel: "socket", Event: f.Event})
		if err := s.client.handler.HandleSocketDelivery(ctx, f.Event, data); err != nil {
			log.Warn().Err(err).Str("event", f.Event).Str("channel", f.Channel).Msg("Socket event rejected")
		}
	}
}

func decodePusherError(f *frame) error {
	perr := &PusherError{}
	if err := f.decodeData(perr); err != nil {
		return fmt.Errorf("undecodable pusher error: %w", err)
	}
	return perr
}
