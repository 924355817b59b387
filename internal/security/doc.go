// Package security derives the engine's security posture report from its
// configuration.
//
// # What this package must NOT do
//
//   - Read secrets or tokens. Inputs are plain configuration facts.
//   - Import goProof or any sibling internal package.
package security
