// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// participantTokenBytes is 192 bits of entropy
const participantTokenBytes = 24

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateParticipantToken creates the random value a client persists and
// presents on every vote. It only deters casual re-voting; the server never
// verifies who issued it.
func GenerateParticipantToken() (string, error) {
	b := make([]byte, participantTokenBytes)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate participant token: %w", err)
	}
	// URL-safe base64 without padding
	return strings.TrimRight(base64.URLEncoding.EncodeToString(b), "="), nil
}

// ValidParticipantToken reports whether a token is non-blank and short enough
// to store. Tokens are opaque, so nothing else is checked.
func ValidParticipantToken(token string) bool {
	token = strings.TrimSpace(token)
	return token != "" && len(token) <= 256
}

// HashIP creates a one-way hash of an IP address for privacy
// Includes salt to prevent rainbow table attacks
func HashIP(ip, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(ip))
	sum := h.Sum(nil)
	// First 16 hex chars (64 bits) are enough for auditing
	return hex.EncodeToString(sum[:8])
}
