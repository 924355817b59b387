package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

const (
	// DefaultSecretSize is the number of random bytes behind a generated secret.
	DefaultSecretSize = 32
	minSecretSize     = 16
)

func RandomBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, errors.New("invalid random size")
	}

	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// NewSecret returns size random bytes, base64url without padding.
func NewSecret(size int) (string, error) {
	if size < minSecretSize {
		return "", errors.New("secret size too small")
	}

	b, err := RandomBytes(size)
	if err != nil {
		return "", err
	}

	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(b), nil
}
