// Package goProof issues and redeems one-time identity proofs.
//
// A token is an identity encrypted with a key derived from a shared secret.
// Anyone holding the secret can check a token offline; the replay store makes
// sure each identity redeems successfully at most once.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
//	engine, err := goProof.New().WithConfig(cfg).Build()
//	token, err := engine.RequestIssuance(ctx, "ada@example.com")
//	decision, err := engine.Redeem(ctx, token)
//
// # Architecture boundaries
//
// goProof is the public surface. It exposes [Engine], [Builder], [Config],
// [Redemption] and the collaborator interfaces ([ReplayStore], [IssueChannel],
// [RedemptionSource], [DecisionSink]). Flow orchestration, replay store
// implementations, throttling, striped locking and audit dispatch live under
// internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Log, audit or return the secret or an issued token anywhere but the
//     return value of RequestIssuance and the IssueChannel.
//   - Report Accepted before the replay store has made the identity durable.
//   - Treat a replay store failure as anything other than a failure. Nothing
//     is accepted when the store cannot be read or written.
//   - Import any sub-package that re-imports goProof (no import cycles).
package goProof
