package internal

import (
	"encoding/base64"
	"testing"
)

func TestRandomBytes(t *testing.T) {
	if _, err := RandomBytes(0); err == nil {
		t.Fatal("expected error for zero size")
	}

	a, err := RandomBytes(16)
	if err != nil {
		t.Fatalf("RandomBytes failed: %v", err)
	}
	b, err := RandomBytes(16)
	if err != nil {
		t.Fatalf("RandomBytes failed: %v", err)
	}
	if len(a) != 16 || string(a) == string(b) {
		t.Fatal("expected two distinct 16-byte values")
	}
}

func TestNewSecret(t *testing.T) {
	if _, err := NewSecret(minSecretSize - 1); err == nil {
		t.Fatal("expected error for undersized secret")
	}

	secret, err := NewSecret(DefaultSecretSize)
	if err != nil {
		t.Fatalf("NewSecret failed: %v", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(secret)
	if err != nil || len(raw) != DefaultSecretSize {
		t.Fatalf("secret must be %d base64url bytes: %q err=%v", DefaultSecretSize, secret, err)
	}
}
