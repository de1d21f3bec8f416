// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package api

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
)

var (
	// ErrSignatureMissing is returned when a delivery carries no signature.
	ErrSignatureMissing = errors.New("webhook signature missing")

	// ErrSignatureInvalid is returned when the signature does not match.
	ErrSignatureInvalid = errors.New("webhook signature invalid")
)

// Verifier checks that a webhook delivery was signed by the provider.
type Verifier interface {
	Verify(messageID, timestamp string, body []byte, signature string) error
}

// RSAVerifier verifies base64 encoded RSA-SHA256 (PKCS#1 v1.5) signatures
// over "<message id>.<timestamp>.<body>".
type RSAVerifier struct {
	key *rsa.PublicKey
}

// NewRSAVerifier creates a verifier for the given provider public key.
func NewRSAVerifier(key *rsa.PublicKey) *RSAVerifier {
	return &RSAVerifier{key: key}
}

// NewRSAVerifierFromPEM parses a PEM encoded public key and returns a verifier.
func NewRSAVerifierFromPEM(data []byte) (*RSAVerifier, error) {
	key, err := ParseRSAPublicKey(data)
	if err != nil {
		return nil, err
	}
	return NewRSAVerifier(key), nil
}

// Verify implements Verifier.
func (v *RSAVerifier) Verify(messageID, timestamp string, body []byte, signature string) error {
	if signature == "" {
		return ErrSignatureMissing
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	digest := sha256.Sum256(SignedContent(messageID, timestamp, body))
	if err := rsa.VerifyPKCS1v15(v.key, crypto.SHA256, digest[:], sig); err != nil {
		return ErrSignatureInvalid
	}
	return nil
}

// SignedContent builds the byte string the provider signs.
func SignedContent(messageID, timestamp string, body []byte) []byte {
	out := make([]byte, 0, len(messageID)+len(timestamp)+len(body)+2)
	out = append(out, messageID...)
	out = append(out, '.')
	out = append(out, timestamp...)
	out = append(out, '.')
	return append(out, body...)
}

// ParseRSAPublicKey accepts a PKIX ("PUBLIC KEY") or PKCS#1
// ("RSA PUBLIC KEY") PEM block.
func ParseRSAPublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found in public key")
	}

	switch block.Type {
	case "PUBLIC KEY":
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse PKIX public key: %w", err)
		}
		key, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("public key is %T, not RSA", parsed)
		}
		return key, nil
	case "RSA PUBLIC KEY":
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse PKCS#1 public key: %w", err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("unsupported PEM block type %q", block.Type)
	}
}
