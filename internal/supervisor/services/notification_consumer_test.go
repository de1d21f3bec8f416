// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/streamrelay/internal/events"
	"github.com/tomtom215/streamrelay/internal/sink"
)

type collected struct {
	mu    sync.Mutex
	items []*events.Notification
}

func (c *collected) handle(_ context.Context, n *events.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, n)
}

func (c *collected) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func TestNotificationConsumerService_Interface(t *testing.T) {
	var _ suture.Service = (*NotificationConsumerService)(nil)
}

func TestNotificationConsumerService_ConsumesSinkOutput(t *testing.T) {
	gc := sink.NewGoChannel(nil)
	defer gc.Close()
	s := sink.NewWatermillSink(gc, "")

	got := &collected{}
	svc := NewNotificationConsumerService(gc, sink.Topics(""), got.handle)
	assert.Equal(t, "notification-consumer", svc.String())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	// Subscriptions are registered asynchronously; keep emitting until one lands.
	occurred := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	require.Eventually(t, func() bool {
		s.Emit(ctx, events.NewNotification(events.NotifyFollow, events.ChannelWebhook, occurred, map[string]string{"user": "alice"}))
		return got.len() > 0
	}, 5*time.Second, 20*time.Millisecond)

	got.mu.Lock()
	first := got.items[0]
	got.mu.Unlock()
	assert.Equal(t, events.NotifyFollow, first.Kind)
	assert.Equal(t, events.ChannelWebhook, first.Source)
	assert.True(t, first.OccurredAt.Equal(occurred))

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

// chanSubscriber hands out a single channel the test feeds directly.
type chanSubscriber struct {
	ch chan *message.Message
}

func (c chanSubscriber) Subscribe(context.Context, string) (<-chan *message.Message, error) {
	return c.ch, nil
}

func (c chanSubscriber) Close() error { return nil }

func TestNotificationConsumerService_AcksUndecodable(t *testing.T) {
	sub := chanSubscriber{ch: make(chan *message.Message)}
	got := &collected{}
	svc := NewNotificationConsumerService(sub, []string{"relay.bad"}, got.handle)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Serve(ctx) }()

	msg := message.NewMessage("bad-1", []byte("{not json"))
	select {
	case sub.ch <- msg:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not read the message")
	}

	select {
	case <-msg.Acked():
	case <-time.After(2 * time.Second):
		t.Fatal("undecodable message was not acked")
	}
	assert.Zero(t, got.len())
}

type failingSubscriber struct{}

func (failingSubscriber) Subscribe(context.Context, string) (<-chan *message.Message, error) {
	return nil, errors.New("broker unavailable")
}

func (failingSubscriber) Close() error { return nil }

func TestNotificationConsumerService_SubscribeError(t *testing.T) {
	svc := NewNotificationConsumerService(failingSubscriber{}, []string{"a", "b"}, nil)
	err := svc.Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subscribe a")
}

type closingSubscriber struct{}

func (closingSubscriber) Subscribe(context.Context, string) (<-chan *message.Message, error) {
	ch := make(chan *message.Message)
	close(ch)
	return ch, nil
}

func (closingSubscriber) Close() error { return nil }

func TestNotificationConsumerService_SubscriptionClosed(t *testing.T) {
	svc := NewNotificationConsumerService(closingSubscriber{}, []string{"a"}, nil)
	err := svc.Serve(context.Background())
	assert.ErrorIs(t, err, ErrSubscriptionClosed)
}
