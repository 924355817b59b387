package goProof

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	auditEventIssuanceRequest     = "issuance_request"
	auditEventIssuanceDelivery    = "issuance_delivery"
	auditEventRedemption          = "redemption"
	auditEventReplayReset         = "replay_reset"
	auditEventRateLimitTriggered  = "rate_limit_triggered"
	auditEventRedemptionDecision  = "redemption_decision"
	auditEventRejectionNotice     = "issuance_rejection_notice"
)

// AuditErrorCode is the stable error label written into AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrDecode          AuditErrorCode = "decode"
	auditErrInvalidIdentity AuditErrorCode = "invalid_identity"
	auditErrAlreadyRedeemed AuditErrorCode = "already_redeemed"
	auditErrRateLimited     AuditErrorCode = "rate_limited"
	auditErrStorage         AuditErrorCode = "storage_failure"
	auditErrUnavailable     AuditErrorCode = "backend_unavailable"
	auditErrDelivery        AuditErrorCode = "delivery_failed"
	auditErrResetDisabled   AuditErrorCode = "reset_disabled"
	auditErrInternal        AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	identity string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		EventID:   uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Identity:  identity,
		Requester: requesterFromContext(ctx),
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(
	ctx context.Context,
	scope string,
	metadataBuilder func() map[string]string,
) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", nil, func() map[string]string {
		base := map[string]string{
			"scope": scope,
		}
		if metadataBuilder == nil {
			return base
		}
		for k, v := range metadataBuilder() {
			base[k] = v
		}
		return base
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrDecode):
		return auditErrDecode
	case errors.Is(err, ErrInvalidIdentity):
		return auditErrInvalidIdentity
	case errors.Is(err, ErrAlreadyRedeemed):
		return auditErrAlreadyRedeemed
	case errors.Is(err, ErrIssuanceRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrStorageFailure):
		return auditErrStorage
	case errors.Is(err, ErrIssuanceUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrDeliveryFailed):
		return auditErrDelivery
	case errors.Is(err, ErrResetDisabled):
		return auditErrResetDisabled
	default:
		return auditErrInternal
	}
}
