// Package internal contains helper utilities that are private to goProof,
// currently secure random generation for IVs and secrets.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: pure-function orchestrators for issuance, redemption and reset
//   - limiters: Redis-backed issuance throttle
//   - security: security posture report
//   - stores: durable replay sets (file, Redis, SQLite)
//   - stripe: striped per-identity mutex
//
// # What this package must NOT do
//
//   - Export types that appear in the public goProof API.
//   - Be imported by any package outside the goProof module.
package internal
