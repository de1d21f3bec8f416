// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package arbitration

import (
	"sync"
	"time"

	"github.com/tomtom215/streamrelay/internal/dedupe"
	"github.com/tomtom215/streamrelay/internal/events"
)

// FingerprintWindow arbitrates between channels that share no identifier.
// Rich deliveries are checked against the semantic gate immediately. Fast
// deliveries are always held for the delay, then checked against the same
// gate. There is nothing to cancel: whichever check runs first wins, and
// the delay only biases the race towards the rich channel.
type FingerprintWindow[T any] struct {
	delay       time.Duration
	sched       Scheduler
	gate        *dedupe.SemanticGate
	fingerprint dedupe.Fingerprinter[T]
	emit        func(payload T, fp dedupe.Fingerprint)
	reject      func(payload T, fp dedupe.Fingerprint)
	rich        events.Channel
	fast        events.Channel

	mu      sync.Mutex
	pending map[*PendingDelivery[T]]struct{}
	closed  bool
}

// FingerprintWindowConfig wires a FingerprintWindow.
type FingerprintWindowConfig[T any] struct {
	Delay       time.Duration
	Scheduler   Scheduler
	Gate        *dedupe.SemanticGate
	Fingerprint dedupe.Fingerprinter[T]
	// Emit receives fast deliveries the gate admitted after the delay.
	Emit func(payload T, fp dedupe.Fingerprint)
	// Reject receives fast deliveries the gate rejected. Optional.
	Reject func(payload T, fp dedupe.Fingerprint)
	// RichChannel and FastChannel label gate entries. They default to
	// webhook and socket.
	RichChannel events.Channel
	FastChannel events.Channel
}

// NewFingerprintWindow creates a window from cfg.
func NewFingerprintWindow[T any](cfg FingerprintWindowConfig[T]) *FingerprintWindow[T] {
	sched := cfg.Scheduler
	if sched == nil {
		sched = TimerScheduler{}
	}
	reject := cfg.Reject
	if reject == nil {
		reject = func(T, dedupe.Fingerprint) {}
	}
	rich, fast := cfg.RichChannel, cfg.FastChannel
	if rich == "" {
		rich = events.ChannelWebhook
	}
	if fast == "" {
		fast = events.ChannelSocket
	}
	return &FingerprintWindow[T]{
		delay:       cfg.Delay,
		sched:       sched,
		gate:        cfg.Gate,
		fingerprint: cfg.Fingerprint,
		emit:        cfg.Emit,
		reject:      reject,
		rich:        rich,
		fast:        fast,
		pending:     make(map[*PendingDelivery[T]]struct{}),
	}
}

// Admit checks a rich-channel delivery against the gate with no delay and
// reports whether it should be emitted.
func (w *FingerprintWindow[T]) Admit(payload T) (bool, dedupe.Fingerprint) {
	fp := w.fingerprint(payload)
	return w.gate.Admit(fp, w.rich), fp
}

// Offer holds a fast-channel delivery for the delay. The fingerprint is
// computed now, from the delivery's own timestamps, and checked when the
// delay elapses.
func (w *FingerprintWindow[T]) Offer(payload T) Outcome {
	fp := w.fingerprint(payload)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return DroppedClosed
	}

	entry := &PendingDelivery[T]{
		Key:         fp.Primary,
		ScheduledAt: w.sched.Now(),
		Payload:     payload,
	}
	w.pending[entry] = struct{}{}
	entry.task = w.sched.AfterFunc(w.delay, func() { w.resolve(entry, fp) })
	return Scheduled
}

// Pending returns the number of held deliveries.
func (w *FingerprintWindow[T]) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Delay returns the hold time applied to fast deliveries.
func (w *FingerprintWindow[T]) Delay() time.Duration {
	return w.delay
}

// Reset drops every held delivery without checking it.
func (w *FingerprintWindow[T]) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancelAllLocked()
	w.closed = false
}

// Close drops every held delivery and rejects further offers.
func (w *FingerprintWindow[T]) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancelAllLocked()
	w.closed = true
}

func (w *FingerprintWindow[T]) cancelAllLocked() {
	for entry := range w.pending {
		entry.task.Stop()
		delete(w.pending, entry)
	}
}

func (w *FingerprintWindow[T]) resolve(entry *PendingDelivery[T], fp dedupe.Fingerprint) {
	w.mu.Lock()
	if _, ok := w.pending[entry]; !ok {
		w.mu.Unlock()
		return
	}
	delete(w.pending, entry)
	w.mu.Unlock()

	if w.gate.Admit(fp, w.fast) {
		w.emit(entry.Payload, fp)
		return
	}
	w.reject(entry.Payload, fp)
}
