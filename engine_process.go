package goProof

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// RunOptions wires the collaborators of the polling loop. Either half may be
// left nil to run only issuance or only redemption processing.
type RunOptions struct {
	Issuances   IssuanceSource
	Channel     IssueChannel
	Redemptions RedemptionSource
	Decisions   DecisionSink

	// Interval between cycles. Zero uses Config.Processing.Interval.
	Interval time.Duration
}

// ProcessIssuanceRequests answers every pending token request from src.
//
// Each request's From header is parsed, a token is issued and delivered
// through ch. When ch also implements RejectionNotifier, rejected requesters
// are told why. One outcome is returned per request, in source order.
//
// A storage failure stops the batch once in-flight requests finish and is
// returned as the error.
func (e *Engine) ProcessIssuanceRequests(ctx context.Context, src IssuanceSource, ch IssueChannel) ([]IssuanceOutcome, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if src == nil || ch == nil {
		return nil, ErrEngineNotReady
	}

	requests, err := src.PendingIssuances(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending issuances: %w", err)
	}

	batchID := uuid.NewString()
	outcomes := make([]IssuanceOutcome, len(requests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Processing.Concurrency)

	started := 0
	for i, req := range requests {
		if gctx.Err() != nil {
			break
		}
		started++
		g.Go(func() error {
			outcomes[i] = e.processIssuance(gctx, batchID, req, ch)
			if isBatchFatal(outcomes[i].Err) {
				return outcomes[i].Err
			}
			return nil
		})
	}

	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	e.logger.Debug("issuance batch processed",
		"component", "processor",
		"batch_id", batchID,
		"requests", len(requests),
		"processed", started,
	)
	return outcomes[:started], err
}

func (e *Engine) processIssuance(ctx context.Context, batchID string, req IssuanceRequest, ch IssueChannel) IssuanceOutcome {
	out := IssuanceOutcome{Request: req}

	name, identity, err := ParseRequester(req.From)
	if err != nil {
		out.Err = err
		e.metricInc(MetricIssuanceRejected)
		e.emitAudit(ctx, auditEventIssuanceRequest, false, "", err, func() map[string]string {
			return map[string]string{"reason": "unparseable_sender", "batch_id": batchID}
		})
		return out
	}
	out.Name = name
	out.Identity = identity

	ctx = WithRequester(ctx, name)
	out.Err = e.IssueTo(ctx, identity, ch)
	if out.Err == nil {
		return out
	}

	if !isRejection(out.Err) {
		e.logger.Warn("issuance failed",
			"component", "processor",
			"batch_id", batchID,
			"identity", identity,
			"error", out.Err,
		)
		return out
	}

	notifier, ok := ch.(RejectionNotifier)
	if !ok {
		return out
	}
	if err := notifier.NotifyRejected(ctx, name, identity, out.Err); err != nil {
		e.metricInc(MetricDeliveryFailure)
		e.emitAudit(ctx, auditEventRejectionNotice, false, identity, ErrDeliveryFailed, func() map[string]string {
			return map[string]string{"batch_id": batchID}
		})
		e.logger.Warn("rejection notice failed",
			"component", "processor",
			"batch_id", batchID,
			"identity", identity,
			"error", err,
		)
		return out
	}
	e.emitAudit(ctx, auditEventRejectionNotice, true, identity, nil, func() map[string]string {
		return map[string]string{"batch_id": batchID, "reason": auditErrorCodeString(out.Err)}
	})
	return out
}

// ProcessRedemptions decides every pending code from src and hands each
// decision to sink.
//
// Entries with an empty code are skipped and get no decision. Outcomes are
// returned in source order for the entries that were processed. A storage
// failure stops the batch once in-flight redemptions finish; no decision is
// made for the failed entry and the error wraps ErrStorageFailure.
//
// Decisions are resolved with ctx, not the batch context, so an identity
// accepted just before a sibling failed still gets its approval.
func (e *Engine) ProcessRedemptions(ctx context.Context, src RedemptionSource, sink DecisionSink) ([]RedemptionOutcome, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if src == nil || sink == nil {
		return nil, ErrEngineNotReady
	}

	pending, err := src.Pending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending redemptions: %w", err)
	}

	work := make([]PendingRedemption, 0, len(pending))
	for _, p := range pending {
		if strings.TrimSpace(p.SubmittedCode) == "" {
			continue
		}
		work = append(work, p)
	}

	batchID := uuid.NewString()
	outcomes := make([]RedemptionOutcome, len(work))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Processing.Concurrency)

	started := 0
	for i, p := range work {
		if gctx.Err() != nil {
			break
		}
		started++
		g.Go(func() error {
			outcomes[i] = e.processRedemption(ctx, gctx, batchID, p, sink)
			if isBatchFatal(outcomes[i].Err) {
				return outcomes[i].Err
			}
			return nil
		})
	}

	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	e.logger.Debug("redemption batch processed",
		"component", "processor",
		"batch_id", batchID,
		"pending", len(pending),
		"skipped", len(pending)-len(work),
		"processed", started,
	)
	return outcomes[:started], err
}

func (e *Engine) processRedemption(ctx, batchCtx context.Context, batchID string, p PendingRedemption, sink DecisionSink) RedemptionOutcome {
	out := RedemptionOutcome{Pending: p}

	decision, err := e.Redeem(WithRequester(batchCtx, p.RequesterName), p.SubmittedCode)
	if err != nil {
		out.Err = err
		return out
	}
	out.Decision = decision

	resolveCtx := WithRequester(ctx, p.RequesterName)
	if err := sink.Resolve(resolveCtx, p, decision); err != nil {
		out.Err = err
		e.metricInc(MetricDecisionFailure)
		e.emitAudit(resolveCtx, auditEventRedemptionDecision, false, decision.Identity, err, func() map[string]string {
			return map[string]string{"batch_id": batchID, "status": decision.Status.String()}
		})
		e.logger.Error("redemption decision not applied",
			"component", "processor",
			"batch_id", batchID,
			"requester", p.RequesterName,
			"status", decision.Status.String(),
			"error", err,
		)
		return out
	}

	e.emitAudit(resolveCtx, auditEventRedemptionDecision, true, decision.Identity, nil, func() map[string]string {
		return map[string]string{
			"batch_id": batchID,
			"status":   decision.Status.String(),
			"reason":   decision.Reason.String(),
		}
	})
	return out
}

// Run processes issuance requests and then pending redemptions once per
// interval until ctx is done. Failed cycles are logged and retried on the
// next tick. Run returns ctx.Err() or ErrEngineClosed.
func (e *Engine) Run(ctx context.Context, opts RunOptions) error {
	if err := e.ready(); err != nil {
		return err
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = e.config.Processing.Interval
	}
	if interval <= 0 {
		interval = defaultConfig().Processing.Interval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := e.runCycle(ctx, opts); errors.Is(err, ErrEngineClosed) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (e *Engine) runCycle(ctx context.Context, opts RunOptions) error {
	if opts.Issuances != nil && opts.Channel != nil {
		if _, err := e.ProcessIssuanceRequests(ctx, opts.Issuances, opts.Channel); err != nil {
			e.logger.Error("issuance cycle failed", "component", "processor", "error", err)
			if errors.Is(err, ErrEngineClosed) {
				return err
			}
		}
	}
	if opts.Redemptions != nil && opts.Decisions != nil {
		if _, err := e.ProcessRedemptions(ctx, opts.Redemptions, opts.Decisions); err != nil {
			e.logger.Error("redemption cycle failed", "component", "processor", "error", err)
			return err
		}
	}
	return nil
}

func isRejection(err error) bool {
	return errors.Is(err, ErrInvalidIdentity) ||
		errors.Is(err, ErrAlreadyRedeemed) ||
		errors.Is(err, ErrIssuanceRateLimited)
}

func isBatchFatal(err error) bool {
	return errors.Is(err, ErrStorageFailure) || errors.Is(err, ErrEngineClosed)
}

func auditErrorCodeString(err error) string {
	return string(auditErrorCode(err))
}
