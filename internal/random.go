package internal

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
)

const (
	// TokenIDBytes is the raw size of a token jti before hex encoding.
	TokenIDBytes = 20
	// FingerprintBytes is the raw size of a user fingerprint before hex encoding.
	FingerprintBytes = 24
)

// RandomHex returns n bytes from crypto/rand, hex encoded (2n characters).
func RandomHex(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("invalid random size")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// NewTokenID returns a fresh jti value.
func NewTokenID() (string, error) {
	return RandomHex(TokenIDBytes)
}

// NewFingerprint returns a fresh user fingerprint.
func NewFingerprint() (string, error) {
	return RandomHex(FingerprintBytes)
}
