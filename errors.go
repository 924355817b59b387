package goProof

import (
	"errors"

	"github.com/MrEthical07/goProof/codec"
)

var (
	// ErrDecode is returned when a token cannot be decoded with the configured
	// secret. It is the same value as codec.ErrDecode.
	ErrDecode = codec.ErrDecode
	// ErrInvalidIdentity is returned for empty identities and identities the
	// eligibility rules do not admit.
	ErrInvalidIdentity = errors.New("invalid identity")
	// ErrAlreadyRedeemed is returned when the identity has already redeemed a token.
	ErrAlreadyRedeemed = errors.New("identity already redeemed")
	// ErrStorageFailure is returned when the replay store cannot be read or
	// written. Nothing is accepted when it occurs.
	ErrStorageFailure = errors.New("replay storage failure")
	// ErrIssuanceRateLimited is returned when an identity or client exceeded
	// its issuance budget.
	ErrIssuanceRateLimited = errors.New("issuance rate limited")
	// ErrIssuanceUnavailable is returned when a token could not be produced or
	// the issuance limiter backend is unreachable.
	ErrIssuanceUnavailable = errors.New("issuance unavailable")
	// ErrDeliveryFailed is returned when a token was issued but the channel
	// could not deliver it.
	ErrDeliveryFailed = errors.New("token delivery failed")
	// ErrEngineNotReady is returned by operations on a partially constructed Engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrEngineClosed is returned by operations after Close.
	ErrEngineClosed = errors.New("engine closed")
	// ErrResetDisabled is returned by ResetReplay unless Config.Reset.Enabled is set.
	ErrResetDisabled = errors.New("replay reset disabled")
)
