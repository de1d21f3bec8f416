// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package sink

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/streamrelay/internal/events"
	"github.com/tomtom215/streamrelay/internal/logging"
	"github.com/tomtom215/streamrelay/internal/metrics"
)

// Backend names for Config.Backend.
const (
	BackendGoChannel = "gochannel"
	BackendNATS      = "nats"
)

// DefaultTopicPrefix is prepended to every notification topic.
const DefaultTopicPrefix = "streamrelay"

// Metadata keys set on every published message.
const (
	MetadataKind   = "kind"
	MetadataSource = "source"
	MetadataSchema = "schema_version"
)

// WatermillSink publishes notifications as JSON on a watermill publisher.
// Topics are <prefix>.<kind>.<source>.
type WatermillSink struct {
	publisher      message.Publisher
	prefix         string
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	closers        []func() error

	mu     sync.RWMutex
	closed bool
}

// NewWatermillSink creates a sink on publisher. An empty prefix uses
// DefaultTopicPrefix.
func NewWatermillSink(publisher message.Publisher, prefix string) *WatermillSink {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &WatermillSink{publisher: publisher, prefix: prefix}
}

// SetCircuitBreaker guards publish calls with cb.
func (s *WatermillSink) SetCircuitBreaker(cb *gobreaker.CircuitBreaker[interface{}]) {
	s.circuitBreaker = cb
}

// TopicFor returns the topic n is published on.
func (s *WatermillSink) TopicFor(n *events.Notification) string {
	return s.prefix + "." + n.Topic()
}

// Topics returns every topic a sink with prefix can publish on. The
// gochannel backend has no wildcard subscriptions, so consumers subscribe
// to each one.
func Topics(prefix string) []string {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	sources := []events.Channel{events.ChannelWebhook, events.ChannelSocket}
	topics := make([]string, 0, len(events.NotificationKinds)*len(sources))
	for _, kind := range events.NotificationKinds {
		for _, src := range sources {
			topics = append(topics, prefix+"."+string(kind)+"."+string(src))
		}
	}
	return topics
}

// Emit serializes and publishes n. Errors are logged and counted.
func (s *WatermillSink) Emit(ctx context.Context, n *events.Notification) {
	if err := s.Publish(ctx, n); err != nil {
		metrics.RecordSinkError(string(n.Kind))
		logging.Ctx(ctx).Error().
			Err(err).
			Str("notification_id", n.ID).
			Str("kind", string(n.Kind)).
			Msg("Failed to publish notification")
	}
}

// Publish serializes and publishes n, returning any error.
func (s *WatermillSink) Publish(ctx context.Context, n *events.Notification) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrSinkClosed
	}
	s.mu.RUnlock()

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("serialize notification: %w", err)
	}

	msg := message.NewMessage(n.ID, data)
	msg.Metadata.Set(MetadataKind, string(n.Kind))
	msg.Metadata.Set(MetadataSource, string(n.Source))
	msg.Metadata.Set(MetadataSchema, fmt.Sprintf("%d", n.SchemaVersion))
	msg.SetContext(ctx)

	topic := s.TopicFor(n)
	if s.circuitBreaker != nil {
		_, err = s.circuitBreaker.Execute(func() (interface{}, error) {
			return nil, s.publisher.Publish(topic, msg)
		})
		return err
	}
	return s.publisher.Publish(topic, msg)
}

// addCloser registers a resource released by Close after the publisher.
func (s *WatermillSink) addCloser(fn func() error) {
	s.closers = append(s.closers, fn)
}

// Close closes the publisher and any resources opened with it.
func (s *WatermillSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := s.publisher.Close()
	for _, fn := range s.closers {
		if cerr := fn(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// NewGoChannel creates the in-process pub/sub used by the default backend.
func NewGoChannel(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	if logger == nil {
		logger = watermill.NewSlogLogger(logging.NewSlogLogger())
	}
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, logger)
}

// DecodeNotification parses a published message back into an envelope.
// The payload is left as generic JSON.
func DecodeNotification(msg *message.Message) (*events.Notification, error) {
	var n events.Notification
	if err := json.Unmarshal(msg.Payload, &n); err != nil {
		return nil, fmt.Errorf("decode notification %s: %w", msg.UUID, err)
	}
	return &n, nil
}
