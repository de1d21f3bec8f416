// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package reconcile

import (
	"context"

	"github.com/tomtom215/streamrelay/internal/events"
	"github.com/tomtom215/streamrelay/internal/metrics"
	"github.com/tomtom215/streamrelay/internal/registry"
)

// emit hands every notification derived from ev to the sink.
func (r *Reconciler) emit(ctx context.Context, ev events.Event) {
	for _, n := range events.Notifications(ev) {
		r.sink.Emit(ctx, n)
		metrics.RecordNotification(string(n.Kind), string(n.Source))
	}
}

// fireChat runs when a held socket chat message was not preempted.
func (r *Reconciler) fireChat(_ string, msg *events.ChatMessage) {
	r.safely(r.timerCtx, "timer:"+string(events.KindChatMessage), func() {
		metrics.RecordArbitration(string(events.KindChatMessage), "fired")
		r.dispatchChat(r.timerCtx, msg)
	})
	r.reportPending()
}

// dispatchChat registers the message id downstream and emits only on the
// first registration. Both the immediate webhook path and the delayed
// socket path end here, so a webhook that loses the race to a fired timer
// is caught by the registry.
func (r *Reconciler) dispatchChat(ctx context.Context, msg *events.ChatMessage) {
	kind := string(events.KindChatMessage)
	first, err := r.registry.RegisterIfAbsent(ctx, kind+":"+msg.ID, &registry.Record{
		Kind:         kind,
		Source:       string(msg.Channel),
		RegisteredAt: r.sched.Now(),
	})
	if err != nil {
		metrics.RecordDispatchFailure(kind, "registry")
		r.log.LogDispatchFailed(ctx, kind, msg.ID, err)
		return
	}
	if !first {
		metrics.RecordArbitration(kind, "late_duplicate")
		r.log.LogLateDuplicate(ctx, kind, msg.ID)
		return
	}
	r.emit(ctx, msg)
}
