package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"unicode"
	"unicode/utf8"

	"github.com/MrEthical07/goProof/internal"
)

// BlockSize is the cipher block size and the IV length of every token.
const BlockSize = aes.BlockSize

var (
	// ErrDecode is returned for every token that cannot be turned back into an
	// identity. It never wraps the underlying cause.
	ErrDecode = errors.New("token decode failed")
	// ErrEmptySecret is returned by New when the secret is empty.
	ErrEmptySecret = errors.New("empty secret")
	// ErrUnprintable is returned by Issue for identities that are not valid
	// UTF-8 or contain control characters. Such tokens could never be redeemed.
	ErrUnprintable = errors.New("identity is not printable")
)

// Codec encrypts identities into transportable tokens and back.
//
// A Codec is read-only after New and safe for concurrent use.
type Codec struct {
	block cipher.Block
}

// New derives a 256-bit AES key from secret with SHA-256.
func New(secret string) (*Codec, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}

	return &Codec{block: block}, nil
}

// Issue encrypts identity under a fresh random IV and returns
// base64(IV || ciphertext).
func (c *Codec) Issue(identity string) (string, error) {
	if !printable([]byte(identity)) {
		return "", ErrUnprintable
	}

	iv, err := internal.RandomBytes(BlockSize)
	if err != nil {
		return "", err
	}

	padded := pad([]byte(identity))
	raw := make([]byte, BlockSize+len(padded))
	copy(raw[:BlockSize], iv)

	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(raw[BlockSize:], padded)

	return base64.StdEncoding.EncodeToString(raw), nil
}

// Redeem decrypts token and returns the exact identity that was issued.
// Any failure returns ErrDecode.
func (c *Codec) Redeem(token string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", ErrDecode
	}
	if len(raw) < 2*BlockSize || len(raw)%BlockSize != 0 {
		return "", ErrDecode
	}

	iv := raw[:BlockSize]
	plain := make([]byte, len(raw)-BlockSize)
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(plain, raw[BlockSize:])

	identity, ok := unpad(plain)
	if !ok || !printable(identity) {
		return "", ErrDecode
	}

	return string(identity), nil
}

// Issue is a convenience wrapper for one-off encoding with secret.
func Issue(identity, secret string) (string, error) {
	c, err := New(secret)
	if err != nil {
		return "", err
	}
	return c.Issue(identity)
}

// Redeem is a convenience wrapper for one-off decoding with secret.
func Redeem(token, secret string) (string, error) {
	c, err := New(secret)
	if err != nil {
		return "", ErrDecode
	}
	return c.Redeem(token)
}

// pad applies PKCS#7. Aligned input gets a full block of padding.
func pad(b []byte) []byte {
	n := BlockSize - len(b)%BlockSize
	out := make([]byte, len(b)+n)
	copy(out, b)
	for i := len(b); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

// unpad checks the whole final block without branching on secret bytes.
func unpad(b []byte) ([]byte, bool) {
	if len(b) == 0 || len(b)%BlockSize != 0 {
		return nil, false
	}

	n := int(b[len(b)-1])
	good := subtle.ConstantTimeLessOrEq(1, n) & subtle.ConstantTimeLessOrEq(n, BlockSize)

	tail := b[len(b)-BlockSize:]
	for i := 0; i < BlockSize; i++ {
		inPad := subtle.ConstantTimeLessOrEq(BlockSize, i+n)
		match := subtle.ConstantTimeByteEq(tail[i], byte(n))
		// bytes inside the padding region must equal n
		good &= subtle.ConstantTimeSelect(inPad, match, 1)
	}

	if good != 1 {
		return nil, false
	}
	return b[:len(b)-n], true
}

func printable(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}
