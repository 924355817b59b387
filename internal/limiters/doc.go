// Package limiters provides Redis-backed request throttles.
//
// # Limiters
//
//   - [IssuanceLimiter]: fixed-window budget per identity and per client IP
//     for token issuance requests.
//
// Limiters are nil-safe: calling CheckRequest on a nil receiver returns nil.
//
// # Architecture boundaries
//
// Each limiter owns its own Redis key namespace and error types. Thresholds
// come from a Config struct supplied at construction time.
//
// # What this package must NOT do
//
//   - Import goProof or any sibling internal package.
//   - Make policy decisions beyond counting. Flow functions decide consequences.
package limiters
