// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package logging

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// EventLogger provides reconciliation-specific log helpers so that every
// path reports duplicates, scheduling and failures with the same fields.
type EventLogger struct {
	logger zerolog.Logger
}

// NewEventLogger creates an EventLogger on the global logger.
func NewEventLogger() *EventLogger {
	return &EventLogger{
		logger: With().Str("component", "reconcile").Logger(),
	}
}

// NewEventLoggerWithLogger creates an EventLogger with a custom logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewEventLoggerWithLogger(logger zerolog.Logger) *EventLogger {
	return &EventLogger{
		logger: logger.With().Str("component", "reconcile").Logger(),
	}
}

func (e *EventLogger) withContext(ctx context.Context) zerolog.Logger {
	logCtx := e.logger.With()
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		logCtx = logCtx.Str("request_id", requestID)
	}
	// Only the message id: the helpers below set channel and kind themselves.
	if d, ok := deliveryFromContext(ctx); ok && d.ID != "" {
		logCtx = logCtx.Str("message_id", d.ID)
	}
	return logCtx.Logger()
}

// LogDuplicate logs an expected duplicate dropped by a gate. Duplicates are
// normal in an at-least-once system and are logged at warn level.
func (e *EventLogger) LogDuplicate(ctx context.Context, gate, kind, key string) {
	logger := e.withContext(ctx)
	logger.Warn().
		Str("gate", gate).
		Str("kind", kind).
		Str("key", key).
		Msg("duplicate delivery dropped")
}

// LogScheduled logs a fast-channel delivery held in an arbitration window.
func (e *EventLogger) LogScheduled(ctx context.Context, kind, key string, delay time.Duration) {
	logger := e.withContext(ctx)
	logger.Debug().
		Str("kind", kind).
		Str("key", key).
		Dur("delay", delay).
		Msg("socket delivery scheduled")
}

// LogPreempted logs a pending fast-channel delivery cancelled by the rich channel.
func (e *EventLogger) LogPreempted(ctx context.Context, kind, key string) {
	logger := e.withContext(ctx)
	logger.Debug().
		Str("kind", kind).
		Str("key", key).
		Msg("pending socket delivery cancelled by webhook")
}

// LogLateDuplicate logs a delivery stopped by the downstream registry after
// both channels raced past the in-memory checks.
func (e *EventLogger) LogLateDuplicate(ctx context.Context, kind, key string) {
	logger := e.withContext(ctx)
	logger.Warn().
		Str("kind", kind).
		Str("key", key).
		Msg("late duplicate stopped by registry")
}

// LogDispatchFailed logs a downstream failure. The delivery is abandoned.
func (e *EventLogger) LogDispatchFailed(ctx context.Context, kind, key string, err error) {
	logger := e.withContext(ctx)
	logger.Error().
		Err(err).
		Str("kind", kind).
		Str("key", key).
		Msg("event dispatch failed")
}

// LogRecovered logs a panic recovered at a handler boundary.
func (e *EventLogger) LogRecovered(ctx context.Context, where string, recovered interface{}) {
	logger := e.withContext(ctx)
	logger.Error().
		Str("handler", where).
		Interface("panic", recovered).
		Msg("recovered from panic")
}

// LogIgnored logs a delivery whose kind has no handler.
func (e *EventLogger) LogIgnored(ctx context.Context, channel, kind string) {
	logger := e.withContext(ctx)
	logger.Debug().
		Str("channel", channel).
		Str("kind", kind).
		Msg("unhandled event kind ignored")
}
