package goProof

import (
	"context"
	"time"

	internalflows "github.com/MrEthical07/goProof/internal/flows"
)

// Redeem decodes a submitted code and, when it carries an eligible identity
// that has not redeemed yet, records the identity as redeemed.
//
// Whitespace anywhere in rawCode is ignored. Rejections are returned as a
// Redemption with Status Rejected and a Reason, never as an error. A non-nil
// error wraps ErrStorageFailure (or is the context error) and means nothing
// was accepted.
//
// For any identity at most one call ever returns Accepted, across goroutines
// and across restarts, until ResetReplay.
func (e *Engine) Redeem(ctx context.Context, rawCode string) (Redemption, error) {
	if err := e.ready(); err != nil {
		return Redemption{}, err
	}

	result, err := internalflows.RunRedeem(ctx, rawCode, e.flows.Redemption)
	if err != nil {
		return Redemption{}, err
	}
	return toRedemption(result), nil
}

func toRedemption(result internalflows.RedemptionResult) Redemption {
	out := Redemption{Identity: result.Identity}
	switch result.Outcome {
	case internalflows.OutcomeAccepted:
		out.Status = Accepted
	case internalflows.OutcomeDecode:
		out.Reason = ReasonDecode
	case internalflows.OutcomeInvalidIdentity:
		out.Reason = ReasonInvalidIdentity
	case internalflows.OutcomeAlreadyRedeemed:
		out.Reason = ReasonAlreadyRedeemed
	}
	return out
}

func (e *Engine) redemptionFlowDeps() internalflows.RedemptionDeps {
	return internalflows.RedemptionDeps{
		Decode:            e.codec.Redeem,
		IsEligible:        e.classifier.IsEligible,
		Lock:              e.locks.Lock,
		NormalizeIdentity: NormalizeIdentity,
		Contains:          e.replay.Contains,
		Add:               e.replay.Add,
		MapStoreError:     mapReplayStoreError,
		Now:               time.Now,
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		MetricObserve: func(id int, d time.Duration) {
			e.metricObserve(MetricID(id), d)
		},
		EmitAudit: e.emitAudit,
		Metrics: internalflows.RedemptionMetrics{
			RedemptionAttempt:      int(MetricRedemptionAttempt),
			RedemptionAccepted:     int(MetricRedemptionAccepted),
			RedemptionDecodeFailed: int(MetricRedemptionDecodeFailed),
			RedemptionIneligible:   int(MetricRedemptionIneligible),
			RedemptionReplay:       int(MetricRedemptionReplay),
			ReplayStorageFailure:   int(MetricReplayStorageFailure),
			RedeemLatency:          int(MetricRedeemLatency),
		},
		Events: internalflows.RedemptionEvents{
			Redemption: auditEventRedemption,
		},
		Errors: internalflows.RedemptionErrors{
			EngineNotReady:  ErrEngineNotReady,
			Decode:          ErrDecode,
			InvalidIdentity: ErrInvalidIdentity,
			AlreadyRedeemed: ErrAlreadyRedeemed,
		},
	}
}
