// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package api

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
	otherKey    *rsa.PrivateKey
)

func signingKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	testKeyOnce.Do(func() {
		var err error
		testKey, err = rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		otherKey, err = rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
	})
	return testKey, otherKey
}

func sign(t *testing.T, key *rsa.PrivateKey, messageID, timestamp string, body []byte) string {
	t.Helper()
	digest := sha256.Sum256(SignedContent(messageID, timestamp, body))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(sig)
}

func pkixPEM(t *testing.T, pub interface{}) []byte {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

func TestSignedContent(t *testing.T) {
	got := SignedContent("msg-1", "2026-03-01T12:00:00Z", []byte(`{"a":1}`))
	assert.Equal(t, `msg-1.2026-03-01T12:00:00Z.{"a":1}`, string(got))
}

func TestRSAVerifier(t *testing.T) {
	key, other := signingKeys(t)
	v := NewRSAVerifier(&key.PublicKey)
	body := []byte(`{"follower":{"username":"fan"}}`)
	good := sign(t, key, "msg-1", "2026-03-01T12:00:00Z", body)

	tests := []struct {
		name      string
		messageID string
		timestamp string
		body      []byte
		signature string
		wantErr   error
	}{
		{"valid", "msg-1", "2026-03-01T12:00:00Z", body, good, nil},
		{"missing", "msg-1", "2026-03-01T12:00:00Z", body, "", ErrSignatureMissing},
		{"not base64", "msg-1", "2026-03-01T12:00:00Z", body, "%%%", ErrSignatureInvalid},
		{"tampered body", "msg-1", "2026-03-01T12:00:00Z", []byte(`{"follower":{"username":"eve"}}`), good, ErrSignatureInvalid},
		{"different message id", "msg-2", "2026-03-01T12:00:00Z", body, good, ErrSignatureInvalid},
		{"different timestamp", "msg-1", "2026-03-01T12:00:01Z", body, good, ErrSignatureInvalid},
		{"wrong key", "msg-1", "2026-03-01T12:00:00Z", body, sign(t, other, "msg-1", "2026-03-01T12:00:00Z", body), ErrSignatureInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Verify(tt.messageID, tt.timestamp, tt.body, tt.signature)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseRSAPublicKey(t *testing.T) {
	key, _ := signingKeys(t)

	t.Run("pkix", func(t *testing.T) {
		parsed, err := ParseRSAPublicKey(pkixPEM(t, &key.PublicKey))
		require.NoError(t, err)
		assert.True(t, key.PublicKey.Equal(parsed))
	})

	t.Run("pkcs1", func(t *testing.T) {
		data := pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(&key.PublicKey)})
		parsed, err := ParseRSAPublicKey(data)
		require.NoError(t, err)
		assert.True(t, key.PublicKey.Equal(parsed))
	})

	t.Run("not pem", func(t *testing.T) {
		_, err := ParseRSAPublicKey([]byte("not a key"))
		assert.Error(t, err)
	})

	t.Run("unsupported block", func(t *testing.T) {
		_, err := ParseRSAPublicKey(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{1}}))
		assert.ErrorContains(t, err, "unsupported PEM block")
	})

	t.Run("not rsa", func(t *testing.T) {
		ec, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)
		_, err = ParseRSAPublicKey(pkixPEM(t, &ec.PublicKey))
		assert.ErrorContains(t, err, "not RSA")
	})
}

func TestNewRSAVerifierFromPEM(t *testing.T) {
	key, _ := signingKeys(t)
	v, err := NewRSAVerifierFromPEM(pkixPEM(t, &key.PublicKey))
	require.NoError(t, err)

	body := []byte("{}")
	assert.NoError(t, v.Verify("m", "t", body, sign(t, key, "m", "t", body)))

	_, err = NewRSAVerifierFromPEM(nil)
	assert.Error(t, err)
}
