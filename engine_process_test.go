package goProof

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type staticIssuances struct {
	requests []IssuanceRequest
	calls    atomic.Int64
}

func (s *staticIssuances) PendingIssuances(context.Context) ([]IssuanceRequest, error) {
	s.calls.Add(1)
	return s.requests, nil
}

type staticRedemptions struct {
	pending []PendingRedemption
	err     error
	calls   atomic.Int64
}

func (s *staticRedemptions) Pending(context.Context) ([]PendingRedemption, error) {
	s.calls.Add(1)
	return s.pending, s.err
}

type notifyingChannel struct {
	recordingChannel
	rejected map[string]error
}

func (c *notifyingChannel) NotifyRejected(_ context.Context, _ string, identity string, reason error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rejected == nil {
		c.rejected = map[string]error{}
	}
	c.rejected[identity] = reason
	return nil
}

type recordingSink struct {
	mu        sync.Mutex
	decisions []Redemption
}

func (s *recordingSink) Resolve(_ context.Context, _ PendingRedemption, decision Redemption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, decision)
	return nil
}

func TestProcessIssuanceRequests(t *testing.T) {
	ctx := context.Background()
	engine := buildTestEngine(t, testConfig(t))

	src := &staticIssuances{requests: []IssuanceRequest{
		{From: "Alice Example <alice@example.com>"},
		{From: "Mallory <mallory@evil.org>"},
		{From: "not an address"},
		{From: "bob@example.com"},
	}}
	ch := &notifyingChannel{}

	outcomes, err := engine.ProcessIssuanceRequests(ctx, src, ch)
	if err != nil {
		t.Fatalf("ProcessIssuanceRequests failed: %v", err)
	}
	if len(outcomes) != 4 {
		t.Fatalf("expected 4 outcomes, got %d", len(outcomes))
	}

	if outcomes[0].Err != nil || outcomes[0].Name != "Alice Example" || outcomes[0].Identity != "alice@example.com" {
		t.Fatalf("outcome 0: %+v", outcomes[0])
	}
	if !errors.Is(outcomes[1].Err, ErrInvalidIdentity) {
		t.Fatalf("outcome 1: %+v", outcomes[1])
	}
	if !errors.Is(outcomes[2].Err, ErrInvalidIdentity) || outcomes[2].Identity != "" {
		t.Fatalf("outcome 2: %+v", outcomes[2])
	}
	if outcomes[3].Err != nil || outcomes[3].Name != "" {
		t.Fatalf("outcome 3: %+v", outcomes[3])
	}

	if len(ch.delivered) != 2 {
		t.Fatalf("expected 2 deliveries, got %v", ch.delivered)
	}
	if _, ok := ch.delivered["mallory@evil.org"]; ok {
		t.Fatal("rejected requester received a token")
	}
	if !errors.Is(ch.rejected["mallory@evil.org"], ErrInvalidIdentity) {
		t.Fatalf("expected a rejection notice for mallory, got %v", ch.rejected)
	}

	got, err := engine.Redeem(ctx, ch.delivered["alice@example.com"])
	if err != nil || !got.Accepted() {
		t.Fatalf("delivered token must redeem: %+v err=%v", got, err)
	}
}

func TestProcessRedemptions(t *testing.T) {
	ctx := context.Background()
	engine := buildTestEngine(t, testConfig(t))

	alice, err := engine.RequestIssuance(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("RequestIssuance failed: %v", err)
	}
	bob, err := engine.RequestIssuance(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("RequestIssuance failed: %v", err)
	}

	src := &staticRedemptions{pending: []PendingRedemption{
		{RequesterName: "Alice", SubmittedCode: alice},
		{RequesterName: "Alice again", SubmittedCode: alice},
		{RequesterName: "Nobody", SubmittedCode: "   "},
		{RequesterName: "Eve", SubmittedCode: "garbage"},
		{RequesterName: "Bob", SubmittedCode: bob},
	}}
	sink := &recordingSink{}

	outcomes, err := engine.ProcessRedemptions(ctx, src, sink)
	if err != nil {
		t.Fatalf("ProcessRedemptions failed: %v", err)
	}
	if len(outcomes) != 4 || len(sink.decisions) != 4 {
		t.Fatalf("empty codes are skipped: outcomes=%d decisions=%d", len(outcomes), len(sink.decisions))
	}

	accepted := map[string]int{}
	replays := 0
	for _, o := range outcomes {
		if o.Err != nil {
			t.Fatalf("unexpected error for %q: %v", o.Pending.RequesterName, o.Err)
		}
		switch {
		case o.Decision.Accepted():
			accepted[o.Decision.Identity]++
		case o.Decision.Reason == ReasonAlreadyRedeemed:
			replays++
		}
	}
	if accepted["alice@example.com"] != 1 || accepted["bob@example.com"] != 1 || replays != 1 {
		t.Fatalf("unexpected decisions: accepted=%v replays=%d", accepted, replays)
	}
	if outcomes[2].Pending.RequesterName != "Eve" || outcomes[2].Decision.Reason != ReasonDecode {
		t.Fatalf("outcomes must keep source order: %+v", outcomes[2])
	}
}

func TestProcessRedemptionsStopsOnStorageFailure(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(t)
	cfg.Processing.Concurrency = 1
	engine, err := New().WithConfig(cfg).WithReplayStore(addFailingStore{failingStore{err: errors.New("read-only fs")}}).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })

	a, _ := engine.RequestIssuance(ctx, "alice@example.com")
	b, _ := engine.RequestIssuance(ctx, "bob@example.com")

	src := &staticRedemptions{pending: []PendingRedemption{
		{RequesterName: "Alice", SubmittedCode: a},
		{RequesterName: "Bob", SubmittedCode: b},
	}}
	sink := &recordingSink{}

	_, err = engine.ProcessRedemptions(ctx, src, sink)
	if !errors.Is(err, ErrStorageFailure) {
		t.Fatalf("expected ErrStorageFailure, got %v", err)
	}
	if len(sink.decisions) != 0 {
		t.Fatalf("no decision may be made on storage failure, got %v", sink.decisions)
	}
}

func TestProcessRedemptionsSourceError(t *testing.T) {
	engine := buildTestEngine(t, testConfig(t))
	boom := errors.New("mailbox unavailable")

	_, err := engine.ProcessRedemptions(context.Background(), &staticRedemptions{err: boom}, &recordingSink{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected source error, got %v", err)
	}
}

func TestRunPollsUntilCancelled(t *testing.T) {
	engine := buildTestEngine(t, testConfig(t))

	issuances := &staticIssuances{}
	redemptions := &staticRedemptions{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- engine.Run(ctx, RunOptions{
			Issuances:   issuances,
			Channel:     &recordingChannel{},
			Redemptions: redemptions,
			Decisions:   &recordingSink{},
			Interval:    5 * time.Millisecond,
		})
	}()

	deadline := time.Now().Add(2 * time.Second)
	for redemptions.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	if issuances.calls.Load() < 3 || redemptions.calls.Load() < 3 {
		t.Fatalf("expected repeated cycles, got issuances=%d redemptions=%d", issuances.calls.Load(), redemptions.calls.Load())
	}
}
