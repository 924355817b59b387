package goProof

import (
	"context"

	internalflows "github.com/MrEthical07/goProof/internal/flows"
)

// ResetReplay empties the replay store so every identity can redeem again,
// for example between two deployments. It returns how many identities were
// cleared and fails with ErrResetDisabled unless Config.Reset.Enabled is set.
func (e *Engine) ResetReplay(ctx context.Context) (int, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	return internalflows.RunResetReplay(ctx, e.flows.Reset)
}

func (e *Engine) resetFlowDeps() internalflows.ResetDeps {
	return internalflows.ResetDeps{
		Enabled:       e.config.Reset.Enabled,
		Len:           e.replay.Len,
		Clear:         e.replay.Clear,
		MapStoreError: mapReplayStoreError,
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		EmitAudit: e.emitAudit,
		Metrics: internalflows.ResetMetrics{
			ReplayReset:          int(MetricReplayReset),
			ReplayStorageFailure: int(MetricReplayStorageFailure),
		},
		Events: internalflows.ResetEvents{
			ReplayReset: auditEventReplayReset,
		},
		Errors: internalflows.ResetErrors{
			EngineNotReady: ErrEngineNotReady,
			ResetDisabled:  ErrResetDisabled,
		},
	}
}
