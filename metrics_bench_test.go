package goProof

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func BenchmarkMetricsInc(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricRedemptionAttempt)
	}
}

func BenchmarkMetricsIncDisabled(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricRedemptionAttempt)
	}
}

func BenchmarkMetricsIncParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricRedemptionAttempt)
		}
	})
}

func BenchmarkMetricsObserveLatencyParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	d := 3 * time.Millisecond
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Observe(MetricRedeemLatency, d)
		}
	})
}

type packedBenchmarkMetrics struct {
	counters [metricIDCount]uint64
}

func (m *packedBenchmarkMetrics) Inc(id MetricID) {
	atomic.AddUint64(&m.counters[id], 1)
}

// The counters a redemption storm touches.
var redeemHotMetricIDs = [...]MetricID{
	MetricRedemptionAttempt,
	MetricRedemptionAccepted,
	MetricRedemptionReplay,
	MetricRedemptionDecodeFailed,
}

func BenchmarkMetricsIncRedeemMixPadded(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		idx := 0
		for pb.Next() {
			m.Inc(redeemHotMetricIDs[idx])
			idx = (idx + 1) % len(redeemHotMetricIDs)
		}
	})
}

func BenchmarkMetricsIncRedeemMixPacked(b *testing.B) {
	m := &packedBenchmarkMetrics{}
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		idx := 0
		for pb.Next() {
			m.Inc(redeemHotMetricIDs[idx])
			idx = (idx + 1) % len(redeemHotMetricIDs)
		}
	})
}

func BenchmarkRedeemReplay(b *testing.B) {
	cfg := DefaultConfig()
	cfg.Secret = "s3cr3t"
	cfg.Eligibility.Pattern = testPattern
	cfg.Replay.LogPath = filepath.Join(b.TempDir(), "used.txt")

	engine, err := New().WithConfig(cfg).Build()
	if err != nil {
		b.Fatalf("Build failed: %v", err)
	}
	b.Cleanup(func() { _ = engine.Close() })

	ctx := context.Background()
	token, err := engine.RequestIssuance(ctx, "bench@example.com")
	if err != nil {
		b.Fatalf("RequestIssuance failed: %v", err)
	}
	if _, err := engine.Redeem(ctx, token); err != nil {
		b.Fatalf("Redeem failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := engine.Redeem(ctx, token); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
