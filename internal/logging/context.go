// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type contextKey string

const (
	deliveryKey  contextKey = "delivery"
	requestIDKey contextKey = "request_id"
	loggerKey    contextKey = "logger"
)

// Delivery identifies one inbound event on one channel. It follows the event
// through the reconciler so every log line about it can be grepped together.
type Delivery struct {
	// Channel is "webhook" or "socket".
	Channel string
	// ID is the webhook message id. Socket events have none.
	ID string
	// Event is the provider event name, e.g. "channel.followed" or
	// `App\Events\ChatMessageEvent`.
	Event string
}

// ContextWithDelivery returns a context carrying d.
func ContextWithDelivery(ctx context.Context, d Delivery) context.Context {
	return context.WithValue(ctx, deliveryKey, d)
}

func deliveryFromContext(ctx context.Context) (Delivery, bool) {
	d, ok := ctx.Value(deliveryKey).(Delivery)
	return d, ok
}

// ContextWithRequestID returns a new context with the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext retrieves the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithLogger stores a logger in the context.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// loggerFromContext returns the logger stored in ctx, falling back to the
// global logger.
func loggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx returns a logger carrying the request id and delivery fields from ctx.
//
//	logging.Ctx(ctx).Warn().Msg("Duplicate webhook delivery dropped")
func Ctx(ctx context.Context) *zerolog.Logger {
	logCtx := loggerFromContext(ctx).With()

	if requestID := RequestIDFromContext(ctx); requestID != "" {
		logCtx = logCtx.Str("request_id", requestID)
	}
	if d, ok := deliveryFromContext(ctx); ok {
		logCtx = logCtx.Str("channel", d.Channel)
		if d.ID != "" {
			logCtx = logCtx.Str("message_id", d.ID)
		}
		if d.Event != "" {
			logCtx = logCtx.Str("event", d.Event)
		}
	}

	logger := logCtx.Logger()
	return &logger
}

// WithComponent creates a child logger with a component field.
//
//	socketLogger := logging.WithComponent("socket")
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
