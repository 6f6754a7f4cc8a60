package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apolloAuth "github.com/MrEthical07/apolloAuth"
)

type fakeSource struct {
	snapshot apolloAuth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() apolloAuth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) EventsDropped() uint64                       { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: apolloAuth.MetricsSnapshot{
			Counters:   map[apolloAuth.MetricID]uint64{},
			Histograms: map[apolloAuth.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: apolloAuth.MetricsSnapshot{
			Counters: map[apolloAuth.MetricID]uint64{
				apolloAuth.MetricLoginSuccess: 7,
			},
			Histograms: map[apolloAuth.MetricID][]uint64{
				apolloAuth.MetricExchangeLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"apollo_login_success_total 7",
		"apollo_logout_total 0",
		"apollo_exchange_latency_seconds_bucket{le=\"0.005\"} 1",
		"apollo_exchange_latency_seconds_bucket{le=\"+Inf\"} 36",
		"apollo_exchange_latency_seconds_count 36",
		"apollo_events_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestRenderOmitsDisabledHistogram(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: apolloAuth.MetricsSnapshot{
			Counters:   map[apolloAuth.MetricID]uint64{apolloAuth.MetricLogout: 1},
			Histograms: map[apolloAuth.MetricID][]uint64{},
		},
	})

	if out := exp.Render(); strings.Contains(out, "apollo_exchange_latency_seconds") {
		t.Fatalf("expected no histogram when latency is off, got:\n%s", out)
	}
}

type noopExchange struct{}

func (noopExchange) Login(context.Context, apolloAuth.Credentials) (*apolloAuth.AuthResult, error) {
	return &apolloAuth.AuthResult{Token: "tok", User: &apolloAuth.UserIdentity{ID: 1, Email: "a@b.com"}}, nil
}

func (noopExchange) Register(context.Context, apolloAuth.Profile) (*apolloAuth.AuthResult, error) {
	return nil, context.Canceled
}

func (noopExchange) FetchIdentity(context.Context, string) (*apolloAuth.UserIdentity, error) {
	return nil, context.Canceled
}

func TestHandlerServesCoordinatorMetrics(t *testing.T) {
	coord, err := apolloAuth.New().WithExchange(noopExchange{}).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer coord.Close()
	if _, err := coord.Login(context.Background(), apolloAuth.Credentials{Email: "a@b.com", Password: "secret1"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	NewExporter(coord).Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "apollo_login_success_total 1") {
		t.Fatalf("expected login counter, got:\n%s", rec.Body.String())
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: apolloAuth.MetricsSnapshot{
			Counters: map[apolloAuth.MetricID]uint64{
				apolloAuth.MetricLoginSuccess:     1000,
				apolloAuth.MetricLoginFailure:     40,
				apolloAuth.MetricRehydrateSuccess: 800,
				apolloAuth.MetricCacheHit:         5000,
			},
			Histograms: map[apolloAuth.MetricID][]uint64{
				apolloAuth.MetricExchangeLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
