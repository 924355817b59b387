// Package jwt issues and verifies the short-lived HS256 tokens that guard the
// goProof administrative endpoints (replay reset and security report).
//
// Tokens carry a fixed admin scope, a random jti and strict exp/iat claims.
// They are unrelated to the one-time proof tokens produced by package codec.
package jwt
