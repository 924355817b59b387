// Package eligibility decides which identities may request and redeem tokens.
//
// A [Classifier] combines an optional regular expression with an optional
// static allow-list loaded once at startup from a CSV column
// ([LoadAllowList]). Both rules see the lower-cased identity; an identity is
// eligible when either rule admits it. The expression must match from the
// first character.
//
// Classifiers are immutable and lock-free.
package eligibility
