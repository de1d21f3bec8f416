// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package sink

import (
	"context"
	"errors"
	"sync"

	"github.com/tomtom215/streamrelay/internal/events"
)

// Sink errors
var (
	// ErrSinkClosed indicates the sink has been closed.
	ErrSinkClosed = errors.New("sink is closed")

	// ErrUnknownBackend indicates an unsupported event bus backend.
	ErrUnknownBackend = errors.New("unknown sink backend")
)

// Sink receives canonical notifications. Emit is fire-and-forget: failures
// are logged and counted by the implementation, never returned.
type Sink interface {
	Emit(ctx context.Context, n *events.Notification)
}

// Func adapts a function to the Sink interface.
type Func func(ctx context.Context, n *events.Notification)

// Emit calls f.
func (f Func) Emit(ctx context.Context, n *events.Notification) { f(ctx, n) }

// RecordingSink keeps every notification in memory. It backs tests and the
// dry-run mode of the server.
type RecordingSink struct {
	mu            sync.Mutex
	notifications []*events.Notification
}

// NewRecordingSink creates an empty RecordingSink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

// Emit records n.
func (s *RecordingSink) Emit(_ context.Context, n *events.Notification) {
	s.mu.Lock()
	s.notifications = append(s.notifications, n)
	s.mu.Unlock()
}

// Notifications returns a copy of everything recorded so far.
func (s *RecordingSink) Notifications() []*events.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*events.Notification(nil), s.notifications...)
}

// ByKind returns recorded notifications of the given kind in emit order.
func (s *RecordingSink) ByKind(kind events.NotificationKind) []*events.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*events.Notification
	for _, n := range s.notifications {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the number of recorded notifications.
func (s *RecordingSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notifications)
}

// Reset discards everything recorded.
func (s *RecordingSink) Reset() {
	s.mu.Lock()
	s.notifications = nil
	s.mu.Unlock()
}
