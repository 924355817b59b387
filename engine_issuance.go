package goProof

import (
	"context"
	"fmt"
	"strings"

	internalflows "github.com/MrEthical07/goProof/internal/flows"
)

// RequestIssuance returns a fresh token for identity.
//
// Leading and trailing whitespace is trimmed before anything else, so the
// token carries the trimmed identity and redeems to exactly those bytes. Case
// is kept as given.
//
// It fails with ErrInvalidIdentity when identity is empty or not eligible,
// ErrIssuanceRateLimited when throttled, ErrAlreadyRedeemed when the identity
// has redeemed before, and ErrStorageFailure when the replay store cannot be
// read. The replay set is never modified. Every call produces a different
// token because each uses a new IV.
func (e *Engine) RequestIssuance(ctx context.Context, identity string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	return internalflows.RunRequestIssuance(ctx, identity, e.flows.Issuance)
}

// IssueTo requests a token for identity and hands it to ch. The channel is
// only called after a successful issuance, so a rejected identity never
// receives a token.
func (e *Engine) IssueTo(ctx context.Context, identity string, ch IssueChannel) error {
	if ch == nil {
		return ErrEngineNotReady
	}
	token, err := e.RequestIssuance(ctx, identity)
	if err != nil {
		return err
	}

	if err := ch.Deliver(ctx, strings.TrimSpace(identity), token); err != nil {
		e.metricInc(MetricDeliveryFailure)
		e.emitAudit(ctx, auditEventIssuanceDelivery, false, identity, ErrDeliveryFailed, nil)
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	e.metricInc(MetricIssuanceDelivered)
	e.emitAudit(ctx, auditEventIssuanceDelivery, true, identity, nil, nil)
	return nil
}

func (e *Engine) issuanceFlowDeps() internalflows.IssuanceDeps {
	deps := internalflows.IssuanceDeps{
		ClientIPFromContext: clientIPFromContext,
		IsEligible:          e.classifier.IsEligible,
		MapLimiterError:     mapIssuanceLimiterError,
		Contains:            e.replay.Contains,
		MapStoreError:       mapReplayStoreError,
		Issue:               e.codec.Issue,
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		EmitAudit:     e.emitAudit,
		EmitRateLimit: e.emitRateLimit,
		Metrics: internalflows.IssuanceMetrics{
			IssuanceRequest:      int(MetricIssuanceRequest),
			IssuanceSuccess:      int(MetricIssuanceSuccess),
			IssuanceRejected:     int(MetricIssuanceRejected),
			IssuanceRateLimited:  int(MetricIssuanceRateLimited),
			ReplayStorageFailure: int(MetricReplayStorageFailure),
		},
		Events: internalflows.IssuanceEvents{
			IssuanceRequest: auditEventIssuanceRequest,
		},
		Errors: internalflows.IssuanceErrors{
			EngineNotReady:  ErrEngineNotReady,
			InvalidIdentity: ErrInvalidIdentity,
			RateLimited:     ErrIssuanceRateLimited,
			Unavailable:     ErrIssuanceUnavailable,
			AlreadyRedeemed: ErrAlreadyRedeemed,
		},
	}
	if e.limiter != nil {
		deps.CheckLimiter = e.limiter.CheckRequest
	}
	return deps
}
