// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

// Package logging provides centralized zerolog-based structured logging for streamrelay.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Str("addr", addr).Msg("Server starting")
//	logging.Ctx(ctx).Warn().Msg("Duplicate webhook delivery dropped")
//
// # Delivery Context
//
// The webhook handler and the socket client attach a Delivery to the request
// context. Ctx then adds channel, message_id and event to every line, so a
// single delivery can be followed from ingress to dispatch:
//
//	ctx = logging.ContextWithDelivery(ctx, logging.Delivery{Channel: "webhook", ID: messageID, Event: eventType})
//
// # Levels used by the reconciler
//
//	debug  - scheduling, preemption and ignored event kinds
//	info   - connection lifecycle and startup
//	warn   - expected duplicates dropped by a gate or the registry
//	error  - downstream failures and recovered panics
//
// Always terminate log chains with .Msg() or .Send():
//
//	logging.Info().Str("key", "value").Msg("message")  // Correct
//	logging.Info().Str("key", "value")                 // WRONG - log not emitted
//
// # slog Adapter
//
// Suture reports supervisor events through slog. NewSlogLogger returns an
// slog.Logger that writes through the global zerolog logger:
//
//	handler := &sutureslog.Handler{Logger: logging.NewSlogLogger()}
//
// # Testing
//
//	var buf bytes.Buffer
//	logging.SetLogger(logging.NewTestLogger(&buf))
package logging
