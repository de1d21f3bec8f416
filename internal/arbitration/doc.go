// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

/*
Package arbitration delays the fast channel so the rich channel can win.

Two strategies are provided:

SharedKeyWindow is used when both channels carry the same identifier (chat
message UUIDs). It is cancellable:

	rich  key k  -> mark k seen forever, cancel pending k, process now
	fast  key k  -> drop if seen or already pending, else hold for delay
	timer key k  -> claim the slot if still held, then process

FingerprintWindow is used when the channels share nothing (gifts, bans,
stream status). It cannot cancel; the fast delivery is always held for the
delay and then checked against a dedupe.SemanticGate that the rich channel
has already consulted:

	rich  -> gate.Admit(fp, webhook) now
	fast  -> wait delay, then gate.Admit(fp, socket)

Timers come from a Scheduler. TimerScheduler uses runtime timers;
ManualScheduler advances time explicitly so tests can order every race.
*/
package arbitration
