// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunRequestIssuance, RunRedeem, RunResetReplay) accepts a
// typed dependency struct and returns results without side effects beyond
// those dependencies. The Engine stays thin and every branch is testable with
// in-memory fakes.
//
// # Architecture boundaries
//
// Flow functions coordinate the codec, eligibility classifier, replay store,
// issuance limiter, audit, and metrics. They do NOT own any of these
// resources. Ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goProof (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
//   - Put raw tokens into audit metadata.
package flows
