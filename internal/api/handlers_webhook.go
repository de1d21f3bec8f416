// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package api

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/streamrelay/internal/logging"
	"github.com/tomtom215/streamrelay/internal/metrics"
	"github.com/tomtom215/streamrelay/internal/reconcile"
	"github.com/tomtom215/streamrelay/internal/validation"
)

// Webhook delivery headers.
const (
	HeaderMessageID        = "Kick-Event-Message-Id"
	HeaderSubscriptionID   = "Kick-Event-Subscription-Id"
	HeaderMessageTimestamp = "Kick-Event-Message-Timestamp"
	HeaderEventType        = "Kick-Event-Type"
	HeaderEventVersion     = "Kick-Event-Version"
	HeaderSignature        = "Kick-Event-Signature"
)

// WebhookAck is returned for every accepted delivery, duplicates included,
// so the provider stops retrying.
type WebhookAck struct {
	Received  bool   `json:"received"`
	MessageID string `json:"message_id"`
	Event     string `json:"event"`
	Test      bool   `json:"test,omitempty"`
}

// TestWebhookRequest injects a synthetic delivery.
type TestWebhookRequest struct {
	EventType    string          `json:"event_type" validate:"required,max=64"`
	EventVersion string          `json:"event_version" validate:"omitempty,max=8"`
	Payload      json.RawMessage `json:"payload" validate:"required"`
}

// KickWebhook handles provider webhook deliveries
// POST /api/v1/webhooks/kick
//
// The signature is checked before anything else touches the delivery.
// Responses:
//   - 400: body unreadable, required headers missing, or the delivery is malformed
//   - 401: signature missing or invalid
//   - 413: body too large
//   - 200: everything else, including duplicates and downstream failures
func (h *Handler) KickWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.config.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.RecordWebhookDelivery("too_large")
			respondError(w, r, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "Webhook body too large", err, nil)
			return
		}
		metrics.RecordWebhookDelivery("malformed")
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Failed to read request body", err, nil)
		return
	}

	messageID := r.Header.Get(HeaderMessageID)
	timestamp := r.Header.Get(HeaderMessageTimestamp)
	if messageID == "" || timestamp == "" {
		metrics.RecordWebhookDelivery("malformed")
		respondError(w, r, http.StatusBadRequest, ErrCodeMissingHeaders,
			HeaderMessageID+" and "+HeaderMessageTimestamp+" headers are required", nil, nil)
		return
	}
	r = r.WithContext(logging.ContextWithDelivery(r.Context(), logging.Delivery{
		Channel: "webhook",
		ID:      sanitizeLogValue(messageID),
		Event:   sanitizeLogValue(r.Header.Get(HeaderEventType)),
	}))

	if h.verifier != nil {
		if err := h.verifier.Verify(messageID, timestamp, body, r.Header.Get(HeaderSignature)); err != nil {
			metrics.RecordWebhookDelivery("unauthorized")
			code := ErrCodeInvalidSignature
			if errors.Is(err, ErrSignatureMissing) {
				code = ErrCodeMissingSignature
			}
			respondError(w, r, http.StatusUnauthorized, code, "Webhook signature verification failed", err, nil)
			return
		}
	}

	delivery := reconcile.WebhookDelivery{
		MessageID:      messageID,
		SubscriptionID: r.Header.Get(HeaderSubscriptionID),
		Timestamp:      timestamp,
		EventKind:      r.Header.Get(HeaderEventType),
		EventVersion:   r.Header.Get(HeaderEventVersion),
		RawPayload:     base64.StdEncoding.EncodeToString(body),
	}
	if !h.deliver(w, r, delivery) {
		return
	}

	respondSuccess(w, r, http.StatusOK, WebhookAck{
		Received:  true,
		MessageID: messageID,
		Event:     delivery.EventKind,
	}, start)
}

// TestWebhook injects a test delivery, bypassing the payload gate.
// POST /api/v1/webhooks/test
func (h *Handler) TestWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if !h.config.TestEndpointEnabled {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Test webhooks are not enabled", nil, nil)
		return
	}

	var req TestWebhookRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.config.MaxBodyBytes)).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body", err, nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeInvalidDelivery, "Invalid test webhook", verr, verr.Fields())
		return
	}
	if req.EventVersion == "" {
		req.EventVersion = "1"
	}

	delivery := reconcile.WebhookDelivery{
		MessageID:      "test-" + h.newID(),
		SubscriptionID: "test",
		Timestamp:      h.now().UTC().Format(time.RFC3339Nano),
		EventKind:      req.EventType,
		EventVersion:   req.EventVersion,
		RawPayload:     base64.StdEncoding.EncodeToString(req.Payload),
		IsTestEvent:    true,
	}
	r = r.WithContext(logging.ContextWithDelivery(r.Context(), logging.Delivery{
		Channel: "webhook",
		ID:      delivery.MessageID,
		Event:   sanitizeLogValue(delivery.EventKind),
	}))
	if !h.deliver(w, r, delivery) {
		return
	}

	respondSuccess(w, r, http.StatusOK, WebhookAck{
		Received:  true,
		MessageID: delivery.MessageID,
		Event:     delivery.EventKind,
		Test:      true,
	}, start)
}

// deliver hands a delivery to the reconciler and writes an error response
// when it is rejected. It reports whether the caller should acknowledge.
func (h *Handler) deliver(w http.ResponseWriter, r *http.Request, d reconcile.WebhookDelivery) bool {
	err := h.reconciler.HandleWebhookDelivery(r.Context(), d)
	if err == nil {
		logging.Ctx(r.Context()).Debug().
			Bool("test", d.IsTestEvent).
			Msg("Webhook delivery accepted")
		return true
	}

	if errors.Is(err, reconcile.ErrMalformedDelivery) {
		var details interface{}
		var verr *validation.RequestValidationError
		if errors.As(err, &verr) {
			details = verr.Fields()
		}
		respondError(w, r, http.StatusBadRequest, ErrCodeInvalidDelivery, "Malformed webhook delivery", err, details)
		return false
	}

	respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Failed to process webhook", err, nil)
	return false
}
