// Package middleware exposes net/http middleware used by the goProof HTTP
// surface.
//
// # Middleware
//
//   - [RequireAdmin] verifies a bearer admin token with a jwt.Manager and
//     injects the verified claims into the request context.
//   - [ClientIP] attaches the caller's address to the request context so the
//     Engine can throttle issuance per IP and record it in audit events.
//
// This package translates HTTP semantics only. Token verification lives in
// package jwt and every proof decision is made by goProof.Engine.
package middleware
