// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package reconcile

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/streamrelay/internal/dedupe"
	"github.com/tomtom215/streamrelay/internal/events"
	"github.com/tomtom215/streamrelay/internal/metrics"
	"github.com/tomtom215/streamrelay/internal/validation"
)

// WebhookDelivery is a verified webhook delivery as handed over by the HTTP
// adapter. RawPayload is the base64 encoded request body.
type WebhookDelivery struct {
	MessageID      string `json:"message_id" validate:"required"`
	SubscriptionID string `json:"subscription_id" validate:"required"`
	Timestamp      string `json:"timestamp" validate:"required,rfc3339"`
	EventKind      string `json:"event_kind" validate:"required"`
	EventVersion   string `json:"event_version" validate:"required"`
	RawPayload     string `json:"raw_payload" validate:"required,base64"`
	IsTestEvent    bool   `json:"is_test_event"`
}

// HandleWebhookDelivery runs a webhook delivery through the gates and the
// per-kind reconciliation. It returns an error wrapping
// ErrMalformedDelivery for invalid input; every other outcome, including
// duplicates and downstream failures, returns nil.
func (r *Reconciler) HandleWebhookDelivery(ctx context.Context, d WebhookDelivery) error {
	if verr := validation.ValidateStruct(&d); verr != nil {
		metrics.RecordWebhookDelivery("malformed")
		return fmt.Errorf("%w: %w", ErrMalformedDelivery, verr)
	}
	raw, derr := base64.StdEncoding.DecodeString(d.RawPayload)
	if derr != nil {
		metrics.RecordWebhookDelivery("malformed")
		return fmt.Errorf("%w: raw_payload: %w", ErrMalformedDelivery, derr)
	}
	sentAt, terr := time.Parse(time.RFC3339Nano, d.Timestamp)
	if terr != nil {
		metrics.RecordWebhookDelivery("malformed")
		return fmt.Errorf("%w: timestamp: %w", ErrMalformedDelivery, terr)
	}

	r.safely(ctx, "webhook:"+events.KindLabel(d.EventKind), func() {
		r.handleWebhook(ctx, d, raw, sentAt)
	})
	return nil
}

func (r *Reconciler) handleWebhook(ctx context.Context, d WebhookDelivery, raw []byte, sentAt time.Time) {
	webhook := string(events.ChannelWebhook)

	if !r.idempotency.Admit(d.MessageID) {
		metrics.RecordWebhookDelivery("duplicate")
		metrics.RecordGateRejection(dedupe.GateIdempotency, webhook)
		r.log.LogDuplicate(ctx, dedupe.GateIdempotency, d.EventKind, d.MessageID)
		return
	}
	if !d.IsTestEvent && !r.payloads.Admit(raw) {
		metrics.RecordWebhookDelivery("duplicate")
		metrics.RecordGateRejection(dedupe.GatePayload, webhook)
		r.log.LogDuplicate(ctx, dedupe.GatePayload, d.EventKind, dedupe.PayloadHash(raw))
		return
	}

	receivedAt := r.sched.Now()
	latency := receivedAt.Sub(sentAt)
	metrics.RecordWebhookDelivery("admitted")
	metrics.RecordWebhookLatency(events.KindLabel(d.EventKind), latency)
	r.sink.Emit(ctx, events.NewNotification(events.NotifyWebhookReceived, events.ChannelWebhook, sentAt, events.WebhookReceived{
		EventKind:    d.EventKind,
		EventVersion: d.EventVersion,
		LatencyMs:    latency.Milliseconds(),
		TestEvent:    d.IsTestEvent,
	}))
	metrics.RecordNotification(string(events.NotifyWebhookReceived), webhook)

	kind := events.Kind(d.EventKind)
	ev, err := events.ParseWebhook(kind, raw, receivedAt)
	if errors.Is(err, events.ErrUnknownKind) {
		r.log.LogIgnored(ctx, webhook, d.EventKind)
		return
	}
	if err != nil {
		metrics.RecordDispatchFailure(string(kind), "parse")
		r.log.LogDispatchFailed(ctx, d.EventKind, d.MessageID, err)
		return
	}

	r.processRich(ctx, ev)
}

// processRich handles a parsed webhook event with no delay.
func (r *Reconciler) processRich(ctx context.Context, ev events.Event) {
	webhook := string(events.ChannelWebhook)
	label := string(ev.Kind())

	var (
		admitted = true
		fp       dedupe.Fingerprint
	)
	switch e := ev.(type) {
	case *events.ChatMessage:
		if r.chat.Preempt(e.ID) {
			metrics.RecordArbitration(label, "preempted")
			r.log.LogPreempted(ctx, label, e.ID)
			r.reportPending()
		}
		r.dispatchChat(ctx, e)
		return
	case *events.GiftedSubscriptions:
		admitted, fp = r.gifts.Admit(e)
	case *events.UserBanned:
		admitted, fp = r.bans.Admit(e)
	case *events.StreamStatus:
		admitted, fp = r.streams.Admit(e)
	}

	if !admitted {
		metrics.RecordGateRejection(dedupe.GateSemantic, webhook)
		r.log.LogDuplicate(ctx, dedupe.GateSemantic, label, fp.Primary)
		return
	}
	r.emit(ctx, ev)
}
