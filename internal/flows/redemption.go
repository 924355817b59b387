package flows

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"
)

// RedemptionOutcome classifies a completed redemption attempt.
type RedemptionOutcome int

const (
	OutcomeAccepted RedemptionOutcome = iota
	OutcomeDecode
	OutcomeInvalidIdentity
	OutcomeAlreadyRedeemed
)

type RedemptionResult struct {
	Outcome  RedemptionOutcome
	Identity string
}

type RedemptionMetrics struct {
	RedemptionAttempt      int
	RedemptionAccepted     int
	RedemptionDecodeFailed int
	RedemptionIneligible   int
	RedemptionReplay       int
	ReplayStorageFailure   int
	RedeemLatency          int
}

type RedemptionEvents struct {
	Redemption string
}

type RedemptionErrors struct {
	EngineNotReady  error
	Decode          error
	InvalidIdentity error
	AlreadyRedeemed error
}

type RedemptionDeps struct {
	Decode     func(string) (string, error)
	IsEligible func(string) bool

	// Lock serializes the check-and-add for one normalized identity.
	Lock              func(string) func()
	NormalizeIdentity func(string) string
	Contains          func(context.Context, string) (bool, error)
	Add               func(context.Context, string) (bool, error)
	MapStoreError     func(error) error
	Now               func() time.Time

	MetricInc     func(int)
	MetricObserve func(int, time.Duration)
	EmitAudit     func(context.Context, string, bool, string, error, func() map[string]string)

	Metrics RedemptionMetrics
	Events  RedemptionEvents
	Errors  RedemptionErrors
}

// StripWhitespace removes every whitespace rune, including ones a mail client
// inserts when it wraps a long token.
func StripWhitespace(code string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, code)
}

// RunRedeem decodes rawCode and records the identity as redeemed exactly once.
//
// Rejections are returned as data. A non-nil error means the replay set could
// not be consulted or updated and nothing was accepted.
func RunRedeem(ctx context.Context, rawCode string, deps RedemptionDeps) (RedemptionResult, error) {
	normalizeRedemptionDeps(&deps)

	if deps.Decode == nil || deps.IsEligible == nil || deps.Contains == nil || deps.Add == nil || deps.Lock == nil {
		return RedemptionResult{}, deps.Errors.EngineNotReady
	}

	start := deps.Now()
	defer func() {
		deps.MetricObserve(deps.Metrics.RedeemLatency, deps.Now().Sub(start))
	}()
	deps.MetricInc(deps.Metrics.RedemptionAttempt)

	identity, err := deps.Decode(StripWhitespace(rawCode))
	if err != nil {
		deps.MetricInc(deps.Metrics.RedemptionDecodeFailed)
		deps.EmitAudit(ctx, deps.Events.Redemption, false, "", deps.Errors.Decode, func() map[string]string {
			return map[string]string{"reason": "decode"}
		})
		return RedemptionResult{Outcome: OutcomeDecode}, nil
	}

	if !deps.IsEligible(identity) {
		deps.MetricInc(deps.Metrics.RedemptionIneligible)
		deps.EmitAudit(ctx, deps.Events.Redemption, false, identity, deps.Errors.InvalidIdentity, func() map[string]string {
			return map[string]string{"reason": "ineligible"}
		})
		return RedemptionResult{Outcome: OutcomeInvalidIdentity, Identity: identity}, nil
	}

	if err := ctx.Err(); err != nil {
		return RedemptionResult{}, err
	}

	added, err := checkAndAdd(ctx, identity, deps)
	if err != nil {
		deps.MetricInc(deps.Metrics.ReplayStorageFailure)
		mapped := deps.MapStoreError(err)
		deps.EmitAudit(ctx, deps.Events.Redemption, false, identity, mapped, func() map[string]string {
			return map[string]string{"reason": "storage"}
		})
		return RedemptionResult{}, mapped
	}
	if !added {
		deps.MetricInc(deps.Metrics.RedemptionReplay)
		deps.EmitAudit(ctx, deps.Events.Redemption, false, identity, deps.Errors.AlreadyRedeemed, func() map[string]string {
			return map[string]string{"reason": "already_redeemed"}
		})
		return RedemptionResult{Outcome: OutcomeAlreadyRedeemed, Identity: identity}, nil
	}

	deps.MetricInc(deps.Metrics.RedemptionAccepted)
	deps.EmitAudit(ctx, deps.Events.Redemption, true, identity, nil, nil)
	return RedemptionResult{Outcome: OutcomeAccepted, Identity: identity}, nil
}

// checkAndAdd is the critical section. Add reporting false covers a second
// process sharing the same backend.
func checkAndAdd(ctx context.Context, identity string, deps RedemptionDeps) (bool, error) {
	unlock := deps.Lock(deps.NormalizeIdentity(identity))
	defer unlock()

	present, err := deps.Contains(ctx, identity)
	if err != nil {
		return false, err
	}
	if present {
		return false, nil
	}

	return deps.Add(ctx, identity)
}

func normalizeRedemptionDeps(deps *RedemptionDeps) {
	if deps.NormalizeIdentity == nil {
		deps.NormalizeIdentity = func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	}
	if deps.MapStoreError == nil {
		deps.MapStoreError = func(err error) error { return err }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.MetricObserve == nil {
		deps.MetricObserve = func(int, time.Duration) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.Errors.EngineNotReady == nil {
		deps.Errors.EngineNotReady = errors.New("engine not ready")
	}
}
