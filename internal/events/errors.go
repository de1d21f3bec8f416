// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package events

import "errors"

// ErrUnknownKind is returned by the parsers for event kinds they do not model.
var ErrUnknownKind = errors.New("unknown event kind")

// ErrMalformedPayload is returned when a payload cannot be decoded or lacks
// the fields needed to reconcile it.
var ErrMalformedPayload = errors.New("malformed event payload")
