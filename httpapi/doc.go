// Package httpapi exposes a goProof Engine over HTTP with a chi router.
//
// Public routes request issuance and redeem codes. Admin routes require a
// bearer token from package jwt. Handlers translate HTTP only; every
// decision is made by the Engine.
package httpapi
