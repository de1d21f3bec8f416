// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package arbitration

import (
	"sync"
	"time"
)

// Outcome describes what a window did with a fast-channel delivery.
type Outcome int

const (
	// Scheduled means the delivery is pending until the delay elapses.
	Scheduled Outcome = iota
	// DroppedSeen means the rich channel already delivered the key.
	DroppedSeen
	// DroppedPending means an earlier fast delivery already holds the slot.
	DroppedPending
	// DroppedClosed means the window no longer accepts deliveries.
	DroppedClosed
)

// String returns the metric label for o.
func (o Outcome) String() string {
	switch o {
	case Scheduled:
		return "scheduled"
	case DroppedSeen:
		return "dropped_seen"
	case DroppedPending:
		return "dropped_pending"
	case DroppedClosed:
		return "dropped_closed"
	default:
		return "unknown"
	}
}

// PendingDelivery is a fast-channel delivery held in a window.
type PendingDelivery[T any] struct {
	Key         string
	ScheduledAt time.Time
	Payload     T
	task        Task
}

// SharedKeyWindow arbitrates between two channels that share a
// correlation key. The rich channel always wins: it marks the key seen
// permanently and cancels any pending fast delivery. A fast delivery is
// held for the delay and handed to fire unless the rich channel arrives
// first.
//
// Every state transition (schedule, cancel, claim on fire) happens under
// one lock, so a timer racing a rich delivery either fires or is
// cancelled, never both.
type SharedKeyWindow[T any] struct {
	mu      sync.Mutex
	delay   time.Duration
	sched   Scheduler
	fire    func(key string, payload T)
	seen    map[string]struct{}
	pending map[string]*PendingDelivery[T]
	closed  bool
}

// NewSharedKeyWindow creates a window that holds fast deliveries for delay
// and passes unpreempted ones to fire on the scheduler's goroutine.
func NewSharedKeyWindow[T any](delay time.Duration, sched Scheduler, fire func(key string, payload T)) *SharedKeyWindow[T] {
	if sched == nil {
		sched = TimerScheduler{}
	}
	return &SharedKeyWindow[T]{
		delay:   delay,
		sched:   sched,
		fire:    fire,
		seen:    make(map[string]struct{}),
		pending: make(map[string]*PendingDelivery[T]),
	}
}

// Offer submits a fast-channel delivery for key.
func (w *SharedKeyWindow[T]) Offer(key string, payload T) Outcome {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return DroppedClosed
	}
	if _, ok := w.seen[key]; ok {
		return DroppedSeen
	}
	if _, ok := w.pending[key]; ok {
		return DroppedPending
	}

	entry := &PendingDelivery[T]{
		Key:         key,
		ScheduledAt: w.sched.Now(),
		Payload:     payload,
	}
	w.pending[key] = entry
	entry.task = w.sched.AfterFunc(w.delay, func() { w.claim(entry) })
	return Scheduled
}

// Preempt records that the rich channel delivered key. It marks the key
// seen and cancels a pending fast delivery, reporting whether one was
// cancelled. The caller processes the rich delivery unconditionally.
func (w *SharedKeyWindow[T]) Preempt(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.seen[key] = struct{}{}
	entry, ok := w.pending[key]
	if !ok {
		return false
	}
	delete(w.pending, key)
	entry.task.Stop()
	return true
}

// Seen reports whether the rich channel has delivered key.
func (w *SharedKeyWindow[T]) Seen(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.seen[key]
	return ok
}

// IsPending reports whether a fast delivery for key is being held.
func (w *SharedKeyWindow[T]) IsPending(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.pending[key]
	return ok
}

// Pending returns the number of held deliveries.
func (w *SharedKeyWindow[T]) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Delay returns the hold time applied to fast deliveries.
func (w *SharedKeyWindow[T]) Delay() time.Duration {
	return w.delay
}

// Reset cancels every pending delivery and forgets every seen key.
func (w *SharedKeyWindow[T]) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cancelAllLocked()
	w.seen = make(map[string]struct{})
	w.closed = false
}

// Close cancels every pending delivery and rejects further offers.
func (w *SharedKeyWindow[T]) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cancelAllLocked()
	w.closed = true
}

func (w *SharedKeyWindow[T]) cancelAllLocked() {
	for key, entry := range w.pending {
		entry.task.Stop()
		delete(w.pending, key)
	}
}

// claim removes entry if it still owns its slot and runs fire. A
// preempted or reset entry no longer owns the slot and is discarded.
func (w *SharedKeyWindow[T]) claim(entry *PendingDelivery[T]) {
	w.mu.Lock()
	current, ok := w.pending[entry.Key]
	if !ok || current != entry {
		w.mu.Unlock()
		return
	}
	delete(w.pending, entry.Key)
	w.mu.Unlock()

	w.fire(entry.Key, entry.Payload)
}
