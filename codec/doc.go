// Package codec turns an identity string into an opaque, transportable token
// and back, using a shared secret.
//
// # Wire format
//
//	base64.StdEncoding( IV[16] || AES-256-CBC( PKCS#7(identity) ) )
//
// The AES key is SHA-256(secret). Every call to [Codec.Issue] draws a fresh IV,
// so two tokens for the same identity never share a prefix.
//
// # Failure model
//
// [Codec.Redeem] collapses malformed base64, bad lengths, invalid padding and
// non-printable plaintext into the single [ErrDecode] value. Callers cannot
// tell which check failed, which keeps redemption from acting as a padding
// oracle.
//
// # What this package must NOT do
//
//   - Store or log the secret, derived key, or plaintext.
//   - Normalize the identity (case is preserved byte-for-byte).
//   - Decide eligibility or replay state.
package codec
