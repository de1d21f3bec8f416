// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/streamrelay/internal/logging"
)

func serveWithRequestID(t *testing.T, header string) (responseID, contextID, loggingID string) {
	t.Helper()
	handler := RequestID(func(w http.ResponseWriter, r *http.Request) {
		contextID = GetRequestID(r.Context())
		loggingID = logging.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/kick", nil)
	if header != "" {
		req.Header.Set(RequestIDHeader, header)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Header().Get(RequestIDHeader), contextID, loggingID
}

func TestRequestID_GeneratesNewID(t *testing.T) {
	responseID, contextID, loggingID := serveWithRequestID(t, "")

	_, err := uuid.Parse(responseID)
	assert.NoError(t, err, "generated id should be a UUID")
	assert.Equal(t, responseID, contextID)
	assert.Equal(t, responseID, loggingID)
}

func TestRequestID_PreservesExistingID(t *testing.T) {
	responseID, contextID, _ := serveWithRequestID(t, "upstream-proxy-42")

	assert.Equal(t, "upstream-proxy-42", responseID)
	assert.Equal(t, "upstream-proxy-42", contextID)
}

func TestRequestID_ReplacesUnsafeID(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"control characters", "abc\ndef"},
		{"spaces", "abc def"},
		{"too long", strings.Repeat("a", maxRequestIDLength+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responseID, _, _ := serveWithRequestID(t, tt.header)
			assert.NotEqual(t, tt.header, responseID)
			_, err := uuid.Parse(responseID)
			assert.NoError(t, err)
		})
	}
}

func TestGetRequestID_EmptyContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, GetRequestID(req.Context()))
}
