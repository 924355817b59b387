package flows

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

var (
	errNotReady  = errors.New("not ready")
	errDecode    = errors.New("decode")
	errInvalid   = errors.New("invalid")
	errRedeemed  = errors.New("redeemed")
	errLimited   = errors.New("limited")
	errStorage   = errors.New("storage")
	errDisabled  = errors.New("disabled")
	errBackendIO = errors.New("disk on fire")
)

type memorySet struct {
	mu      sync.Mutex
	set     map[string]struct{}
	failErr error
	adds    int
}

func newMemorySet() *memorySet {
	return &memorySet{set: make(map[string]struct{})}
}

func (m *memorySet) Contains(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return false, m.failErr
	}
	_, ok := m.set[strings.ToLower(id)]
	return ok, nil
}

func (m *memorySet) Add(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return false, m.failErr
	}
	m.adds++
	key := strings.ToLower(id)
	if _, ok := m.set[key]; ok {
		return false, nil
	}
	m.set[key] = struct{}{}
	return true, nil
}

func testRedemptionDeps(set *memorySet) RedemptionDeps {
	var mu sync.Mutex
	return RedemptionDeps{
		Decode: func(code string) (string, error) {
			if !strings.HasPrefix(code, "tok:") {
				return "", errDecode
			}
			return strings.TrimPrefix(code, "tok:"), nil
		},
		IsEligible: func(id string) bool { return strings.HasSuffix(strings.ToLower(id), "@example.com") },
		Lock: func(string) func() {
			mu.Lock()
			return mu.Unlock
		},
		Contains:      set.Contains,
		Add:           set.Add,
		MapStoreError: func(err error) error { return errStorage },
		Errors: RedemptionErrors{
			EngineNotReady:  errNotReady,
			Decode:          errDecode,
			InvalidIdentity: errInvalid,
			AlreadyRedeemed: errRedeemed,
		},
	}
}

func TestRunRedeemOutcomes(t *testing.T) {
	ctx := context.Background()
	set := newMemorySet()
	deps := testRedemptionDeps(set)

	tests := []struct {
		name     string
		code     string
		outcome  RedemptionOutcome
		identity string
	}{
		{name: "accepted", code: "tok:Alice@Example.com", outcome: OutcomeAccepted, identity: "Alice@Example.com"},
		{name: "replay", code: "tok:alice@example.com", outcome: OutcomeAlreadyRedeemed, identity: "alice@example.com"},
		{name: "decode", code: "garbage", outcome: OutcomeDecode},
		{name: "ineligible", code: "tok:x@other.org", outcome: OutcomeInvalidIdentity, identity: "x@other.org"},
		{name: "wrapped whitespace", code: "tok:bob@exa\r\n mple.com", outcome: OutcomeAccepted, identity: "bob@example.com"},
	}

	for _, tc := range tests {
		got, err := RunRedeem(ctx, tc.code, deps)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if got.Outcome != tc.outcome || got.Identity != tc.identity {
			t.Fatalf("%s: got %+v want outcome=%d identity=%q", tc.name, got, tc.outcome, tc.identity)
		}
	}
}

func TestRunRedeemStorageFailureFailsClosed(t *testing.T) {
	set := newMemorySet()
	set.failErr = errBackendIO
	deps := testRedemptionDeps(set)

	var audited []bool
	deps.EmitAudit = func(_ context.Context, _ string, success bool, _ string, _ error, _ func() map[string]string) {
		audited = append(audited, success)
	}

	got, err := RunRedeem(context.Background(), "tok:a@example.com", deps)
	if !errors.Is(err, errStorage) {
		t.Fatalf("expected mapped storage error, got %v", err)
	}
	if got != (RedemptionResult{}) {
		t.Fatalf("storage failure must not return a decision, got %+v", got)
	}
	if len(audited) != 1 || audited[0] {
		t.Fatalf("expected one failed audit event, got %v", audited)
	}
}

func TestRunRedeemAddLosesRace(t *testing.T) {
	set := newMemorySet()
	deps := testRedemptionDeps(set)
	// another process inserted between our Contains and Add
	deps.Contains = func(context.Context, string) (bool, error) { return false, nil }
	if _, err := set.Add(context.Background(), "a@example.com"); err != nil {
		t.Fatal(err)
	}

	got, err := RunRedeem(context.Background(), "tok:a@example.com", deps)
	if err != nil || got.Outcome != OutcomeAlreadyRedeemed {
		t.Fatalf("expected AlreadyRedeemed, got %+v err=%v", got, err)
	}
}

func TestRunRedeemCanceledBeforeCriticalSection(t *testing.T) {
	set := newMemorySet()
	deps := testRedemptionDeps(set)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := RunRedeem(ctx, "tok:a@example.com", deps); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if set.adds != 0 {
		t.Fatal("canceled redemption must not touch the replay set")
	}
}

func TestRunRedeemNotReady(t *testing.T) {
	if _, err := RunRedeem(context.Background(), "x", RedemptionDeps{Errors: RedemptionErrors{EngineNotReady: errNotReady}}); !errors.Is(err, errNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
}

func TestRunRedeemConcurrentSingleAccept(t *testing.T) {
	set := newMemorySet()
	deps := testRedemptionDeps(set)

	results := make(chan RedemptionOutcome, 50)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := RunRedeem(context.Background(), "tok:race@example.com", deps)
			if err != nil {
				t.Errorf("RunRedeem: %v", err)
				return
			}
			results <- got.Outcome
		}()
	}
	wg.Wait()
	close(results)

	accepted := 0
	for outcome := range results {
		if outcome == OutcomeAccepted {
			accepted++
		} else if outcome != OutcomeAlreadyRedeemed {
			t.Fatalf("unexpected outcome %d", outcome)
		}
	}
	if accepted != 1 {
		t.Fatalf("expected exactly one accept, got %d", accepted)
	}
}

func TestStripWhitespace(t *testing.T) {
	if got := StripWhitespace(" ab\ncd\t e\r\n"); got != "abcde" {
		t.Fatalf("StripWhitespace=%q", got)
	}
}

func testIssuanceDeps(set *memorySet) IssuanceDeps {
	return IssuanceDeps{
		IsEligible: func(id string) bool { return strings.HasSuffix(strings.ToLower(id), "@example.com") },
		Contains:   set.Contains,
		Issue:      func(id string) (string, error) { return "tok:" + id, nil },
		MapLimiterError: func(err error) error {
			return errLimited
		},
		MapStoreError: func(error) error { return errStorage },
		Errors: IssuanceErrors{
			EngineNotReady:  errNotReady,
			InvalidIdentity: errInvalid,
			RateLimited:     errLimited,
			Unavailable:     errors.New("unavailable"),
			AlreadyRedeemed: errRedeemed,
		},
	}
}

func TestRunRequestIssuance(t *testing.T) {
	ctx := context.Background()
	set := newMemorySet()
	deps := testIssuanceDeps(set)

	token, err := RunRequestIssuance(ctx, "  Alice@Example.com ", deps)
	if err != nil || token != "tok:Alice@Example.com" {
		t.Fatalf("issuance: token=%q err=%v", token, err)
	}
	if set.adds != 0 {
		t.Fatal("issuance must not mutate the replay set")
	}

	if _, err := RunRequestIssuance(ctx, "", deps); !errors.Is(err, errInvalid) {
		t.Fatalf("empty identity: %v", err)
	}
	if _, err := RunRequestIssuance(ctx, "x@other.org", deps); !errors.Is(err, errInvalid) {
		t.Fatalf("ineligible identity: %v", err)
	}

	_, _ = set.Add(ctx, "alice@example.com")
	if _, err := RunRequestIssuance(ctx, "ALICE@example.com", deps); !errors.Is(err, errRedeemed) {
		t.Fatalf("redeemed identity: %v", err)
	}

	set.failErr = errBackendIO
	if _, err := RunRequestIssuance(ctx, "bob@example.com", deps); !errors.Is(err, errStorage) {
		t.Fatalf("storage failure: %v", err)
	}
}

func TestRunRequestIssuanceLimited(t *testing.T) {
	deps := testIssuanceDeps(newMemorySet())

	var limitedKey, limitedIP string
	deps.ClientIPFromContext = func(context.Context) string { return "10.0.0.1" }
	deps.CheckLimiter = func(_ context.Context, identity, ip string) error {
		limitedKey, limitedIP = identity, ip
		return errors.New("over budget")
	}

	if _, err := RunRequestIssuance(context.Background(), "Alice@Example.com", deps); !errors.Is(err, errLimited) {
		t.Fatalf("expected limiter error, got %v", err)
	}
	if limitedKey != "alice@example.com" || limitedIP != "10.0.0.1" {
		t.Fatalf("limiter saw identity=%q ip=%q", limitedKey, limitedIP)
	}
}

func TestRunResetReplay(t *testing.T) {
	ctx := context.Background()
	cleared := false
	deps := ResetDeps{
		Enabled: true,
		Len:     func(context.Context) (int, error) { return 3, nil },
		Clear: func(context.Context) error {
			cleared = true
			return nil
		},
		Errors: ResetErrors{EngineNotReady: errNotReady, ResetDisabled: errDisabled},
	}

	n, err := RunResetReplay(ctx, deps)
	if err != nil || n != 3 || !cleared {
		t.Fatalf("reset: n=%d err=%v cleared=%v", n, err, cleared)
	}

	deps.Enabled = false
	if _, err := RunResetReplay(ctx, deps); !errors.Is(err, errDisabled) {
		t.Fatalf("disabled reset: %v", err)
	}

	deps.Enabled = true
	deps.Clear = func(context.Context) error { return errBackendIO }
	deps.MapStoreError = func(error) error { return errStorage }
	if _, err := RunResetReplay(ctx, deps); !errors.Is(err, errStorage) {
		t.Fatalf("failed reset: %v", err)
	}
}
