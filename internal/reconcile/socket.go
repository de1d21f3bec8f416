// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package reconcile

import (
	"context"
	"fmt"

	"github.com/tomtom215/streamrelay/internal/arbitration"
	"github.com/tomtom215/streamrelay/internal/events"
	"github.com/tomtom215/streamrelay/internal/metrics"
)

// HandleSocketDelivery offers a socket event to the arbitration window for
// its kind. Events that are not reconciled are ignored. A payload that
// cannot be parsed returns an error wrapping ErrMalformedDelivery.
func (r *Reconciler) HandleSocketDelivery(ctx context.Context, event string, raw []byte) error {
	kind, ok := events.SocketKind(event)
	if !ok {
		r.log.LogIgnored(ctx, string(events.ChannelSocket), event)
		return nil
	}

	ev, err := events.ParseSocket(event, raw, r.sched.Now())
	if err != nil {
		metrics.RecordDispatchFailure(string(kind), "parse")
		return fmt.Errorf("%w: %w", ErrMalformedDelivery, err)
	}

	r.safely(ctx, "socket:"+string(kind), func() {
		r.offerFast(ctx, ev)
	})
	return nil
}

// offerFast holds a socket event in the window for its kind.
func (r *Reconciler) offerFast(ctx context.Context, ev events.Event) {
	label := string(ev.Kind())

	var (
		outcome arbitration.Outcome
		key     string
		delay   = r.cfg.ChatDelay
	)
	switch e := ev.(type) {
	case *events.ChatMessage:
		key = e.ID
		outcome = r.chat.Offer(e.ID, e)
	case *events.GiftedSubscriptions:
		delay = r.gifts.Delay()
		outcome = r.gifts.Offer(e)
	case *events.UserBanned:
		delay = r.bans.Delay()
		outcome = r.bans.Offer(e)
	case *events.StreamStatus:
		delay = r.streams.Delay()
		outcome = r.streams.Offer(e)
	default:
		r.log.LogIgnored(ctx, string(events.ChannelSocket), label)
		return
	}

	metrics.RecordArbitration(label, outcome.String())
	switch outcome {
	case arbitration.Scheduled:
		r.log.LogScheduled(ctx, label, key, delay)
		r.reportPending()
	case arbitration.DroppedSeen, arbitration.DroppedPending:
		metrics.RecordGateRejection(outcome.String(), string(events.ChannelSocket))
		r.log.LogDuplicate(ctx, outcome.String(), label, key)
	}
}
