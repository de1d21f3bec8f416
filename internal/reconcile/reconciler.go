// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/streamrelay/internal/arbitration"
	"github.com/tomtom215/streamrelay/internal/cache"
	"github.com/tomtom215/streamrelay/internal/dedupe"
	"github.com/tomtom215/streamrelay/internal/events"
	"github.com/tomtom215/streamrelay/internal/logging"
	"github.com/tomtom215/streamrelay/internal/metrics"
	"github.com/tomtom215/streamrelay/internal/registry"
	"github.com/tomtom215/streamrelay/internal/sink"
)

// Reconciler errors
var (
	// ErrMalformedDelivery indicates a delivery rejected before any dedup
	// state was touched.
	ErrMalformedDelivery = errors.New("malformed delivery")

	// ErrNoSink indicates the reconciler was built without a sink.
	ErrNoSink = errors.New("reconciler requires a sink")
)

// Options carries the collaborators of a Reconciler.
type Options struct {
	// Sink receives canonical notifications. Required.
	Sink sink.Sink
	// Registry is the downstream idempotent store. Defaults to an
	// in-memory registry.
	Registry registry.Registry
	// Scheduler drives arbitration timers and the clock of every cache.
	// Defaults to runtime timers.
	Scheduler arbitration.Scheduler
	// GiftFingerprint overrides the gift content fingerprint.
	GiftFingerprint dedupe.Fingerprinter[*events.GiftedSubscriptions]
	// Logger overrides the reconciliation event logger.
	Logger *logging.EventLogger
}

// Reconciler turns deliveries from the webhook and socket channels into
// exactly one notification per real-world occurrence. It owns every gate
// and arbitration window; nothing is shared between instances.
type Reconciler struct {
	cfg      Config
	sched    arbitration.Scheduler
	sink     sink.Sink
	registry registry.Registry
	ownsReg  bool
	log      *logging.EventLogger
	timerCtx context.Context

	idempotency *dedupe.IdempotencyGate
	payloads    *dedupe.PayloadGate
	semantic    *dedupe.SemanticGate

	chat    *arbitration.SharedKeyWindow[*events.ChatMessage]
	gifts   *arbitration.FingerprintWindow[*events.GiftedSubscriptions]
	bans    *arbitration.FingerprintWindow[*events.UserBanned]
	streams *arbitration.FingerprintWindow[*events.StreamStatus]
}

// New creates a Reconciler.
func New(cfg Config, opts Options) (*Reconciler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reconcile config: %w", err)
	}
	if opts.Sink == nil {
		return nil, ErrNoSink
	}

	r := &Reconciler{
		cfg:      cfg,
		sched:    opts.Scheduler,
		sink:     opts.Sink,
		registry: opts.Registry,
		log:      opts.Logger,
	}
	if r.sched == nil {
		r.sched = arbitration.TimerScheduler{}
	}
	if r.log == nil {
		r.log = logging.NewEventLogger()
	}
	clock := cache.WithClock(r.sched.Now)
	if r.registry == nil {
		r.registry = registry.NewMemoryRegistry(cfg.MessageIDTTL, clock)
		r.ownsReg = true
	}

	r.timerCtx = logging.ContextWithLogger(context.Background(), logging.WithComponent("reconcile-timer"))

	r.idempotency = dedupe.NewIdempotencyGate(cfg.MessageIDTTL, cfg.MessageIDSweep, clock)
	r.payloads = dedupe.NewPayloadGate(cfg.PayloadTTL, cfg.PayloadSweep, clock)
	r.semantic = dedupe.NewSemanticGate(cfg.SemanticTTL, cfg.SemanticSweep, clock)

	r.chat = arbitration.NewSharedKeyWindow(cfg.ChatDelay, r.sched, r.fireChat)

	giftFP := opts.GiftFingerprint
	if giftFP == nil {
		giftFP = dedupe.GiftFingerprint(cfg.BucketWidth)
	}
	r.gifts = newFingerprintWindow(r, events.KindSubscriptionGifts, cfg.GiftDelay, giftFP)
	r.bans = newFingerprintWindow(r, events.KindUserBanned, cfg.BanDelay, dedupe.BanFingerprint(cfg.BucketWidth))
	r.streams = newFingerprintWindow(r, events.KindStreamStatus, cfg.StreamStatusDelay, dedupe.StreamStatusFingerprint(cfg.BucketWidth))

	return r, nil
}

// newFingerprintWindow wires a content-fingerprint window whose fast
// deliveries are emitted or dropped by the shared semantic gate.
func newFingerprintWindow[T events.Event](r *Reconciler, kind events.Kind, delay time.Duration, fp dedupe.Fingerprinter[T]) *arbitration.FingerprintWindow[T] {
	label := string(kind)
	return arbitration.NewFingerprintWindow(arbitration.FingerprintWindowConfig[T]{
		Delay:       delay,
		Scheduler:   r.sched,
		Gate:        r.semantic,
		Fingerprint: fp,
		Emit: func(ev T, _ dedupe.Fingerprint) {
			r.safely(r.timerCtx, "timer:"+label, func() {
				metrics.RecordArbitration(label, "fired")
				r.emit(r.timerCtx, ev)
			})
			r.reportPending()
		},
		Reject: func(_ T, fp dedupe.Fingerprint) {
			metrics.RecordGateRejection(dedupe.GateSemantic, string(events.ChannelSocket))
			metrics.RecordArbitration(label, "suppressed")
			r.log.LogDuplicate(r.timerCtx, dedupe.GateSemantic, label, fp.Primary)
			r.reportPending()
		},
	})
}

// PendingCounts returns the number of held socket deliveries per kind.
func (r *Reconciler) PendingCounts() map[string]int {
	return map[string]int{
		string(events.KindChatMessage):       r.chat.Pending(),
		string(events.KindSubscriptionGifts): r.gifts.Pending(),
		string(events.KindUserBanned):        r.bans.Pending(),
		string(events.KindStreamStatus):      r.streams.Pending(),
	}
}

func (r *Reconciler) reportPending() {
	for kind, n := range r.PendingCounts() {
		metrics.SetPendingDeliveries(kind, n)
	}
}

// Reset drops all dedup state and pending deliveries. The registry is
// reset too when it supports it.
func (r *Reconciler) Reset() {
	r.idempotency.Reset()
	r.payloads.Reset()
	r.semantic.Reset()
	r.chat.Reset()
	r.gifts.Reset()
	r.bans.Reset()
	r.streams.Reset()
	if resetter, ok := r.registry.(interface{ Reset() }); ok {
		resetter.Reset()
	}
	r.reportPending()
}

// Close cancels pending deliveries and stops the cache sweeps. A registry
// created by New is closed as well; an injected one is left to its owner.
func (r *Reconciler) Close() error {
	r.chat.Close()
	r.gifts.Close()
	r.bans.Close()
	r.streams.Close()
	r.idempotency.Close()
	r.payloads.Close()
	r.semantic.Close()
	r.reportPending()
	if r.ownsReg {
		return r.registry.Close()
	}
	return nil
}

// safely runs fn and recovers a panic so one failing delivery cannot take
// down the process or other pending deliveries.
func (r *Reconciler) safely(ctx context.Context, where string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.RecordDispatchFailure(where, "panic")
			r.log.LogRecovered(ctx, where, rec)
		}
	}()
	fn()
}
