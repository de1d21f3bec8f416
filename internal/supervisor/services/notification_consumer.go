// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/streamrelay/internal/events"
	"github.com/tomtom215/streamrelay/internal/logging"
	"github.com/tomtom215/streamrelay/internal/sink"
)

// ErrSubscriptionClosed is returned when the bus closes a subscription while
// the service is still running.
var ErrSubscriptionClosed = errors.New("notification subscription closed")

// NotificationHandler receives each decoded notification.
type NotificationHandler func(ctx context.Context, n *events.Notification)

// NotificationConsumerService subscribes to the notification bus and hands
// every notification to a handler.
//
// With the gochannel backend this is the in-process consumer. Messages that
// cannot be decoded are logged and acknowledged so they are not redelivered.
//
// Example usage:
//
//	s, gc, _ := sink.Open(cfg.ToSinkConfig())
//	svc := services.NewNotificationConsumerService(gc, sink.Topics(prefix), services.LogNotification)
//	tree.AddMessagingService(svc)
type NotificationConsumerService struct {
	subscriber message.Subscriber
	topics     []string
	handler    NotificationHandler
	name       string
}

// NewNotificationConsumerService creates a consumer for topics.
func NewNotificationConsumerService(sub message.Subscriber, topics []string, handler NotificationHandler) *NotificationConsumerService {
	if handler == nil {
		handler = LogNotification
	}
	return &NotificationConsumerService{
		subscriber: sub,
		topics:     topics,
		handler:    handler,
		name:       "notification-consumer",
	}
}

// Serve implements suture.Service.
//
// It subscribes to every topic, then processes messages until the context
// is canceled. A subscription closed by the bus returns
// ErrSubscriptionClosed so the supervisor restarts the consumer.
func (s *NotificationConsumerService) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	merged := make(chan *message.Message)
	closed := make(chan string, len(s.topics))
	var wg sync.WaitGroup

	for _, topic := range s.topics {
		msgs, err := s.subscriber.Subscribe(ctx, topic)
		if err != nil {
			cancel()
			wg.Wait()
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		wg.Add(1)
		go func(topic string, msgs <-chan *message.Message) {
			defer wg.Done()
			for {
				select {
				case msg, ok := <-msgs:
					if !ok {
						closed <- topic
						return
					}
					select {
					case merged <- msg:
					case <-ctx.Done():
						msg.Nack()
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}(topic, msgs)
	}

	defer wg.Wait()
	for {
		select {
		case msg := <-merged:
			s.process(ctx, msg)
		case topic := <-closed:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %s", ErrSubscriptionClosed, topic)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *NotificationConsumerService) process(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	n, err := sink.DecodeNotification(msg)
	if err != nil {
		logging.Ctx(ctx).Error().
			Err(err).
			Str("message_uuid", msg.UUID).
			Msg("Dropping undecodable notification")
		return
	}
	s.handler(ctx, n)
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (s *NotificationConsumerService) String() string {
	return s.name
}

// LogNotification writes n to the application log.
func LogNotification(_ context.Context, n *events.Notification) {
	logging.Info().
		Str("notification_id", n.ID).
		Str("kind", string(n.Kind)).
		Str("source", string(n.Source)).
		Time("occurred_at", n.OccurredAt).
		Interface("payload", n.Payload).
		Msg("Notification")
}
