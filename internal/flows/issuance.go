package flows

import (
	"context"
	"errors"
	"strings"
)

type IssuanceMetrics struct {
	IssuanceRequest      int
	IssuanceSuccess      int
	IssuanceRejected     int
	IssuanceRateLimited  int
	ReplayStorageFailure int
}

type IssuanceEvents struct {
	IssuanceRequest string
}

type IssuanceErrors struct {
	EngineNotReady  error
	InvalidIdentity error
	RateLimited     error
	Unavailable     error
	AlreadyRedeemed error
}

type IssuanceDeps struct {
	ClientIPFromContext func(context.Context) string

	IsEligible      func(string) bool
	CheckLimiter    func(context.Context, string, string) error
	MapLimiterError func(error) error
	Contains        func(context.Context, string) (bool, error)
	MapStoreError   func(error) error
	Issue           func(string) (string, error)

	MetricInc     func(int)
	EmitAudit     func(context.Context, string, bool, string, error, func() map[string]string)
	EmitRateLimit func(context.Context, string, func() map[string]string)

	Metrics IssuanceMetrics
	Events  IssuanceEvents
	Errors  IssuanceErrors
}

// RunRequestIssuance validates identity and returns a fresh token for it.
// The identity is trimmed before it is checked or encoded. It only reads the
// replay set.
func RunRequestIssuance(ctx context.Context, identity string, deps IssuanceDeps) (string, error) {
	normalizeIssuanceDeps(&deps)

	if deps.IsEligible == nil || deps.Contains == nil || deps.Issue == nil {
		return "", deps.Errors.EngineNotReady
	}

	deps.MetricInc(deps.Metrics.IssuanceRequest)

	identity = strings.TrimSpace(identity)
	if identity == "" || !deps.IsEligible(identity) {
		deps.MetricInc(deps.Metrics.IssuanceRejected)
		deps.EmitAudit(ctx, deps.Events.IssuanceRequest, false, identity, deps.Errors.InvalidIdentity, func() map[string]string {
			if identity == "" {
				return map[string]string{"reason": "empty_identity"}
			}
			return map[string]string{"reason": "ineligible"}
		})
		return "", deps.Errors.InvalidIdentity
	}

	if deps.CheckLimiter != nil {
		if err := deps.CheckLimiter(ctx, strings.ToLower(identity), deps.ClientIPFromContext(ctx)); err != nil {
			mapped := deps.MapLimiterError(err)
			if errors.Is(mapped, deps.Errors.RateLimited) {
				deps.MetricInc(deps.Metrics.IssuanceRateLimited)
				deps.EmitRateLimit(ctx, "issuance_request", func() map[string]string {
					return map[string]string{"identity": identity}
				})
			}
			deps.EmitAudit(ctx, deps.Events.IssuanceRequest, false, identity, mapped, nil)
			return "", mapped
		}
	}

	redeemed, err := deps.Contains(ctx, identity)
	if err != nil {
		deps.MetricInc(deps.Metrics.ReplayStorageFailure)
		mapped := deps.MapStoreError(err)
		deps.EmitAudit(ctx, deps.Events.IssuanceRequest, false, identity, mapped, func() map[string]string {
			return map[string]string{"reason": "replay_check_failed"}
		})
		return "", mapped
	}
	if redeemed {
		deps.MetricInc(deps.Metrics.IssuanceRejected)
		deps.EmitAudit(ctx, deps.Events.IssuanceRequest, false, identity, deps.Errors.AlreadyRedeemed, func() map[string]string {
			return map[string]string{"reason": "already_redeemed"}
		})
		return "", deps.Errors.AlreadyRedeemed
	}

	token, err := deps.Issue(identity)
	if err != nil {
		deps.EmitAudit(ctx, deps.Events.IssuanceRequest, false, identity, deps.Errors.Unavailable, func() map[string]string {
			return map[string]string{"reason": "encode_failed"}
		})
		return "", deps.Errors.Unavailable
	}

	deps.MetricInc(deps.Metrics.IssuanceSuccess)
	deps.EmitAudit(ctx, deps.Events.IssuanceRequest, true, identity, nil, nil)
	return token, nil
}

func normalizeIssuanceDeps(deps *IssuanceDeps) {
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.MapLimiterError == nil {
		deps.MapLimiterError = func(err error) error { return err }
	}
	if deps.MapStoreError == nil {
		deps.MapStoreError = func(err error) error { return err }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.EmitRateLimit == nil {
		deps.EmitRateLimit = func(context.Context, string, func() map[string]string) {}
	}
	if deps.Errors.EngineNotReady == nil {
		deps.Errors.EngineNotReady = errors.New("engine not ready")
	}
}
