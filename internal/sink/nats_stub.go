// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

//go:build !nats

package sink

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
)

// NATSAvailable reports whether the binary was built with NATS support.
const NATSAvailable = false

// openNATS returns an error when NATS dependencies are not compiled in.
// Build with -tags=nats to enable the NATS backend.
func openNATS(_ Config, _ watermill.LoggerAdapter) (*WatermillSink, error) {
	return nil, fmt.Errorf("%w: NATS not available, build with -tags=nats", ErrUnknownBackend)
}
