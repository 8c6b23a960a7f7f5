// Package idgen provides URL-safe random token generation backed by nanoid.
// Entity rows use UUID primary keys; idgen covers the opaque tokens
// (session bearer tokens).
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet defines the character set used for generated tokens.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// SessionTokenLength is the number of characters in a session token.
const SessionTokenLength = 32

// NewSessionToken returns a fresh opaque session token.
func NewSessionToken() (string, error) {
	return Generate(SessionTokenLength)
}

// Generate returns a random token of the given length.
func Generate(length int) (string, error) {
	id, err := nanoid.Generate(Alphabet, length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return id, nil
}
