// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

/*
Package validation provides struct validation using go-playground/validator v10.

A single validator instance is shared process-wide. It reports field names
using the `json` tag so that error messages match the wire names callers
send, and registers an rfc3339 tag for platform timestamps.

	type delivery struct {
	    MessageID string `json:"message_id" validate:"required"`
	    Timestamp string `json:"timestamp" validate:"required,rfc3339"`
	}

	if err := validation.ValidateStruct(&d); err != nil {
	    return fmt.Errorf("%w: %s", ErrMalformedDelivery, err)
	}
*/
package validation
