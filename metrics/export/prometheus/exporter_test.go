package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goProof "github.com/MrEthical07/goProof"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeSource struct {
	snapshot goProof.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goProof.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                     { return f.dropped }

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestCollectEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: goProof.MetricsSnapshot{
			Counters:   map[goProof.MetricID]uint64{},
			Histograms: map[goProof.MetricID][]uint64{},
		},
	})
	h, err := exp.Handler()
	if err != nil {
		t.Fatalf("Handler failed: %v", err)
	}

	if out := scrape(t, h); strings.Contains(out, "goproof_") {
		t.Fatalf("expected no goproof series for disabled metrics, got:\n%s", out)
	}
}

func TestCollectIncludesCounterAndHistogram(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: goProof.MetricsSnapshot{
			Counters: map[goProof.MetricID]uint64{
				goProof.MetricRedemptionAccepted: 7,
			},
			Histograms: map[goProof.MetricID][]uint64{
				goProof.MetricRedeemLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})
	h, err := exp.Handler()
	if err != nil {
		t.Fatalf("Handler failed: %v", err)
	}

	out := scrape(t, h)
	for _, want := range []string{
		"goproof_redemption_accepted_total 7",
		"goproof_redemption_replay_total 0",
		`goproof_redeem_latency_seconds_bucket{le="0.005"} 1`,
		`goproof_redeem_latency_seconds_bucket{le="+Inf"} 36`,
		"goproof_redeem_latency_seconds_count 36",
		"goproof_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestExporterAgainstEngine(t *testing.T) {
	cfg := goProof.DefaultConfig()
	cfg.Secret = "s3cr3t"
	cfg.Eligibility.Pattern = `^[^@]+@example\.com$`
	cfg.Replay.LogPath = t.TempDir() + "/used.txt"
	cfg.Metrics.Enabled = true

	engine, err := goProof.New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })

	if _, err := engine.Redeem(t.Context(), "garbage"); err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}

	h, err := NewExporter(engine).Handler()
	if err != nil {
		t.Fatalf("Handler failed: %v", err)
	}
	out := scrape(t, h)
	if !strings.Contains(out, "goproof_redemption_decode_failed_total 1") {
		t.Fatalf("expected decode failure counter, got:\n%s", out)
	}
}

func TestRedisPoolCollector(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	if err := rdb.Ping(t.Context()).Err(); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	h, err := NewExporterFromSource(fakeSource{}).Handler(NewRedisPoolCollector(rdb))
	if err != nil {
		t.Fatalf("Handler failed: %v", err)
	}
	out := scrape(t, h)
	if !strings.Contains(out, "goproof_redis_pool_total_conns ") {
		t.Fatalf("expected pool stats, got:\n%s", out)
	}
}
