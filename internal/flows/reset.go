package flows

import (
	"context"
	"strconv"
)

type ResetMetrics struct {
	ReplayReset          int
	ReplayStorageFailure int
}

type ResetEvents struct {
	ReplayReset string
}

type ResetErrors struct {
	EngineNotReady error
	ResetDisabled  error
}

type ResetDeps struct {
	Enabled       bool
	Len           func(context.Context) (int, error)
	Clear         func(context.Context) error
	MapStoreError func(error) error

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)

	Metrics ResetMetrics
	Events  ResetEvents
	Errors  ResetErrors
}

// RunResetReplay empties the replay set and returns how many identities it
// held. Every previously redeemed identity can redeem again afterwards.
func RunResetReplay(ctx context.Context, deps ResetDeps) (int, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.MapStoreError == nil {
		deps.MapStoreError = func(err error) error { return err }
	}

	if !deps.Enabled {
		deps.EmitAudit(ctx, deps.Events.ReplayReset, false, "", deps.Errors.ResetDisabled, nil)
		return 0, deps.Errors.ResetDisabled
	}
	if deps.Clear == nil || deps.Len == nil {
		return 0, deps.Errors.EngineNotReady
	}

	n, err := deps.Len(ctx)
	if err == nil {
		err = deps.Clear(ctx)
	}
	if err != nil {
		deps.MetricInc(deps.Metrics.ReplayStorageFailure)
		mapped := deps.MapStoreError(err)
		deps.EmitAudit(ctx, deps.Events.ReplayReset, false, "", mapped, nil)
		return 0, mapped
	}

	deps.MetricInc(deps.Metrics.ReplayReset)
	deps.EmitAudit(ctx, deps.Events.ReplayReset, true, "", nil, func() map[string]string {
		return map[string]string{"cleared": strconv.Itoa(n)}
	})
	return n, nil
}
