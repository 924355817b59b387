// Package stores provides the durable replay sets that remember which
// identities have already redeemed a token.
//
// # Design
//
// Every backend exposes the same five operations (Contains, Add, Clear, Len,
// Close). Add is an atomic check-and-add that reports whether the identity
// was newly inserted:
//
//   - [FileReplayLog]: newline-delimited append-only file mirrored in memory.
//     Each append is fsynced before the identity becomes visible.
//   - [RedisReplaySet]: one Redis set; SADD decides the winner across processes.
//   - [SQLiteReplaySet]: one table keyed by identity; INSERT OR IGNORE decides.
//
// Identities are stored in normalized form (trimmed, lower-cased).
//
// # Architecture boundaries
//
// This package owns persistence and durability of redeemed identities. It
// does NOT decode tokens, check eligibility, or decide whether a redemption
// is accepted. Those responsibilities belong to the flow functions in
// internal/flows.
//
// # What this package must NOT do
//
//   - Import goProof or any sibling internal package.
//   - Report an Add as successful before the write is durable.
//   - Remove individual entries. Only Clear shrinks a set.
package stores
