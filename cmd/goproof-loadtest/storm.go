package main

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goProof "github.com/MrEthical07/goProof"
)

type stormResult struct {
	stats      phaseStats
	accepted   int
	replays    int64
	failures   int64
	violations int
}

// storm issues one token per identity, then redeems every token attempts
// times from concurrency workers in random order.
func storm(ctx context.Context, engine *goProof.Engine, identities, attempts, concurrency int) (stormResult, error) {
	tokens := make([]string, identities)
	names := make([]string, identities)
	for i := range tokens {
		names[i] = fmt.Sprintf("user-%d@loadtest.example", i)
		token, err := engine.RequestIssuance(ctx, names[i])
		if err != nil {
			return stormResult{}, fmt.Errorf("issue %s: %w", names[i], err)
		}
		tokens[i] = token
	}

	ops := identities * attempts
	order := rand.New(rand.NewSource(time.Now().UnixNano())).Perm(ops)

	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		replays   int64
		accepted  = make([]int32, identities)
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := order[i] % identities

				t0 := time.Now()
				decision, err := engine.Redeem(ctx, tokens[idx])
				d := time.Since(t0)
				switch {
				case err != nil:
					atomic.AddInt64(&failures, 1)
				case decision.Accepted():
					atomic.AddInt32(&accepted[idx], 1)
				case decision.Reason == goProof.ReasonAlreadyRedeemed:
					atomic.AddInt64(&replays, 1)
				default:
					atomic.AddInt64(&failures, 1)
				}

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)

	res := stormResult{
		stats:    computeStats(total, latencies, failures),
		replays:  replays,
		failures: failures,
	}
	for i, n := range accepted {
		res.accepted += int(n)
		if n != 1 {
			res.violations++
			fmt.Printf("violation: %s accepted %d times\n", names[i], n)
		}
	}
	return res, nil
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printResult(backend goProof.ReplayBackend, r stormResult) {
	s := r.stats
	fmt.Printf("%s: redemptions=%d accepted=%d replays=%d failures=%d violations=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		backend,
		s.ops,
		r.accepted,
		r.replays,
		r.failures,
		r.violations,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
