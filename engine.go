package goProof

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goProof/codec"
	"github.com/MrEthical07/goProof/eligibility"
	internalaudit "github.com/MrEthical07/goProof/internal/audit"
	internalflows "github.com/MrEthical07/goProof/internal/flows"
	"github.com/MrEthical07/goProof/internal/limiters"
	"github.com/MrEthical07/goProof/internal/stores"
	"github.com/MrEthical07/goProof/internal/stripe"
)

// Engine issues and redeems one-time identity tokens.
//
// An Engine is safe for concurrent use. Build it with New().Build() and call
// Close when done.
type Engine struct {
	config     Config
	codec      *codec.Codec
	classifier *eligibility.Classifier
	replay     ReplayStore
	ownsReplay bool
	locks      *stripe.Mutex
	limiter    *limiters.IssuanceLimiter
	audit      *internalaudit.Dispatcher
	metrics    *Metrics
	logger     *slog.Logger
	flows      internalflows.Deps

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Close flushes pending audit events and closes the replay store when the
// engine opened it. Close is idempotent; later operations return
// ErrEngineClosed.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		if e.audit != nil {
			e.audit.Close()
		}
		if e.ownsReplay && e.replay != nil {
			if err := e.replay.Close(); err != nil {
				e.logger.Error("replay store close failed", "component", "engine", "error", err)
				e.closeErr = fmt.Errorf("%w: %v", ErrStorageFailure, err)
			}
		}
	})
	return e.closeErr
}

// AuditDropped returns how many audit events were dropped because the buffer
// was full or the caller's context ended.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters. It is empty when
// metrics are disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the configuration the engine was built with.
// Secret is cleared.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	out := cloneConfig(e.config)
	out.Secret = ""
	return out
}

// IsEligible reports whether identity passes the eligibility rules.
func (e *Engine) IsEligible(identity string) bool {
	if e == nil || e.classifier == nil {
		return false
	}
	return e.classifier.IsEligible(identity)
}

// RedeemedCount returns how many identities the replay store holds.
func (e *Engine) RedeemedCount(ctx context.Context) (int, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	n, err := e.replay.Len(ctx)
	if err != nil {
		e.metricInc(MetricReplayStorageFailure)
		return 0, mapReplayStoreError(err)
	}
	return n, nil
}

func (e *Engine) ready() error {
	if e == nil || e.codec == nil || e.classifier == nil || e.replay == nil {
		return ErrEngineNotReady
	}
	if e.closed.Load() {
		return ErrEngineClosed
	}
	return nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}

func mapReplayStoreError(err error) error {
	switch {
	case errors.Is(err, ErrStorageFailure):
		return err
	case errors.Is(err, stores.ErrReplayClosed):
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	case errors.Is(err, stores.ErrReplayUnavailable):
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
}

func mapIssuanceLimiterError(err error) error {
	switch {
	case errors.Is(err, limiters.ErrIssuanceRateLimited):
		return ErrIssuanceRateLimited
	case errors.Is(err, limiters.ErrIssuanceLimiterUnavailable):
		return ErrIssuanceUnavailable
	default:
		return ErrIssuanceUnavailable
	}
}
