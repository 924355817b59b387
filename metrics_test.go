package goProof

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricRedemptionAccepted)

	if got := m.Value(MetricRedemptionAccepted); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricRedemptionAccepted)
	m.Inc(MetricRedemptionAccepted)
	m.Inc(MetricRedemptionAccepted)

	if got := m.Value(MetricRedemptionAccepted); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricIssuanceRequest)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricIssuanceRequest); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond,
	}

	for _, d := range observations {
		m.Observe(MetricRedeemLatency, d)
	}

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricRedeemLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}

	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestMetricsSnapshotConsistency(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	m.Inc(MetricRedemptionAccepted)
	m.Inc(MetricRedemptionReplay)
	m.Inc(MetricRedemptionReplay)
	m.Observe(MetricRedeemLatency, 2*time.Millisecond)

	snap := m.Snapshot()

	if snap.Counters[MetricRedemptionAccepted] != 1 {
		t.Fatalf("expected MetricRedemptionAccepted=1 got %d", snap.Counters[MetricRedemptionAccepted])
	}
	if snap.Counters[MetricRedemptionReplay] != 2 {
		t.Fatalf("expected MetricRedemptionReplay=2 got %d", snap.Counters[MetricRedemptionReplay])
	}
	if len(snap.Histograms[MetricRedeemLatency]) != 8 {
		t.Fatalf("expected histogram length 8")
	}
	if snap.Histograms[MetricRedeemLatency][0] != 1 {
		t.Fatalf("expected first histogram bucket=1 got %d", snap.Histograms[MetricRedeemLatency][0])
	}
}

func TestMetricsIgnoreHistogramForCounters(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	m.Observe(MetricRedemptionAccepted, time.Millisecond)
	m.Inc(metricIDCount)

	snap := m.Snapshot()
	if _, ok := snap.Histograms[MetricRedemptionAccepted]; ok {
		t.Fatal("counters must not carry a histogram")
	}
	if _, ok := snap.Counters[MetricRedeemLatency]; ok {
		t.Fatal("latency histogram must not appear as a counter")
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricRedemptionAccepted)
	m.Observe(MetricRedeemLatency, time.Millisecond)
	if m.Enabled() || m.LatencyEnabled() || m.Value(MetricRedemptionAccepted) != 0 {
		t.Fatal("nil metrics must be inert")
	}
	if len(m.Snapshot().Counters) != 0 {
		t.Fatal("nil metrics snapshot must be empty")
	}
}
