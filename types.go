package goProof

import (
	"context"
	"fmt"
)

// Status is the final state of a redemption attempt.
type Status int

const (
	// Rejected means the token was not accepted. See Redemption.Reason.
	Rejected Status = iota
	// Accepted means the identity was recorded as redeemed by this call.
	Accepted
)

func (s Status) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// RejectReason explains a Rejected redemption.
type RejectReason int

const (
	ReasonNone RejectReason = iota
	// ReasonDecode means the code was malformed or made with another secret.
	ReasonDecode
	// ReasonInvalidIdentity means the decoded identity is not eligible.
	ReasonInvalidIdentity
	// ReasonAlreadyRedeemed means the identity already redeemed a token.
	ReasonAlreadyRedeemed
)

func (r RejectReason) String() string {
	switch r {
	case ReasonNone:
		return ""
	case ReasonDecode:
		return "decode"
	case ReasonInvalidIdentity:
		return "invalid_identity"
	case ReasonAlreadyRedeemed:
		return "already_redeemed"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// Redemption is the decision for one submitted code.
//
// Identity holds the decoded identity exactly as issued. It is empty when the
// code could not be decoded.
type Redemption struct {
	Status   Status
	Identity string
	Reason   RejectReason
}

// Accepted reports whether the redemption succeeded.
func (r Redemption) Accepted() bool {
	return r.Status == Accepted
}

// Err maps a rejection to its sentinel error for callers that prefer
// errors.Is checks. It returns nil for accepted redemptions.
func (r Redemption) Err() error {
	if r.Status == Accepted {
		return nil
	}
	switch r.Reason {
	case ReasonDecode:
		return ErrDecode
	case ReasonInvalidIdentity:
		return ErrInvalidIdentity
	case ReasonAlreadyRedeemed:
		return ErrAlreadyRedeemed
	default:
		return ErrEngineNotReady
	}
}

// ReplayStore is the durable set of identities that have redeemed a token.
//
// Add must be an atomic check-and-add: it reports false, without error, when
// the identity is already present, and it must not report true before the
// write is durable. Implementations normalize identities themselves.
type ReplayStore interface {
	Contains(ctx context.Context, identity string) (bool, error)
	Add(ctx context.Context, identity string) (added bool, err error)
	Clear(ctx context.Context) error
	Len(ctx context.Context) (int, error)
	Close() error
}

// IssueChannel delivers a freshly issued token to its identity.
type IssueChannel interface {
	Deliver(ctx context.Context, identity, token string) error
}

// RejectionNotifier is optionally implemented by an IssueChannel to tell a
// requester why no token was sent.
type RejectionNotifier interface {
	NotifyRejected(ctx context.Context, name, identity string, reason error) error
}

// PendingRedemption is a code submitted by a named requester.
type PendingRedemption struct {
	RequesterName string
	SubmittedCode string
}

// RedemptionSource lists codes waiting for a decision.
type RedemptionSource interface {
	Pending(ctx context.Context) ([]PendingRedemption, error)
}

// DecisionSink applies a redemption decision, for example by approving or
// declining a membership request.
type DecisionSink interface {
	Resolve(ctx context.Context, pending PendingRedemption, decision Redemption) error
}

// IssuanceRequest is one inbound request for a token. From is an address
// header such as "Ada Lovelace <ada@example.com>".
type IssuanceRequest struct {
	From string
}

// IssuanceSource lists token requests waiting to be answered.
type IssuanceSource interface {
	PendingIssuances(ctx context.Context) ([]IssuanceRequest, error)
}

// IssuanceOutcome reports what happened to one IssuanceRequest.
//
// Err is nil when the token was delivered. Otherwise it wraps one of
// ErrInvalidIdentity, ErrAlreadyRedeemed, ErrIssuanceRateLimited,
// ErrStorageFailure or ErrDeliveryFailed.
type IssuanceOutcome struct {
	Request  IssuanceRequest
	Name     string
	Identity string
	Err      error
}

// RedemptionOutcome pairs a pending code with its decision.
type RedemptionOutcome struct {
	Pending  PendingRedemption
	Decision Redemption
	Err      error
}
