package main

import (
	"context"
	"testing"
	"time"

	goProof "github.com/MrEthical07/goProof"
)

func TestStormAcceptsEachIdentityOnce(t *testing.T) {
	for _, backend := range []goProof.ReplayBackend{goProof.ReplayBackendFile, goProof.ReplayBackendRedis, goProof.ReplayBackendSQLite} {
		t.Run(string(backend), func(t *testing.T) {
			res, err := runBackend(context.Background(), backend, t.TempDir(), "", 20, 4, 8)
			if err != nil {
				t.Fatalf("runBackend failed: %v", err)
			}
			if res.accepted != 20 || res.violations != 0 || res.failures != 0 {
				t.Fatalf("unexpected result: %+v", res)
			}
			if res.replays != 20*3 {
				t.Fatalf("expected %d replays, got %d", 20*3, res.replays)
			}
		})
	}
}

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(samples, 0); got != 1 {
		t.Fatalf("p0 = %d", got)
	}
	if got := percentile(samples, 50); got != 5 {
		t.Fatalf("p50 = %d", got)
	}
	if got := percentile(samples, 100); got != 10 {
		t.Fatalf("p100 = %d", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Fatalf("empty = %d", got)
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	s := computeStats(time.Second, nil, 0)
	if s.ops != 0 || s.total != time.Second {
		t.Fatalf("unexpected stats: %+v", s)
	}
}
