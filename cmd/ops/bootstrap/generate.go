package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// tokenByteLength is the number of random bytes generated for the demo
// secret: 32 bytes hex-encoded to a 64-character string.
const tokenByteLength = 32

// GenerateSecureToken produces a cryptographically secure random token,
// encoded as a lowercase hex string.
//
// Returns an error only if the system's random number generator fails.
func GenerateSecureToken() (string, error) {
	buf := make([]byte, tokenByteLength)
	n, err := rand.Read(buf)
	if err != nil {
		return "", fmt.Errorf("generating secure token: crypto/rand failed: %w", err)
	}
	if n != tokenByteLength {
		return "", fmt.Errorf("generating secure token: expected %d random bytes, got %d", tokenByteLength, n)
	}

	return hex.EncodeToString(buf), nil
}

// SecretPayload wraps value in the JSON object the service reads, with the
// value under the "password" field.
func SecretPayload(value string) (string, error) {
	b, err := json.Marshal(map[string]string{"password": value})
	if err != nil {
		return "", fmt.Errorf("encoding secret payload: %w", err)
	}
	return string(b), nil
}
