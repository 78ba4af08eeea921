package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/banjarlabs/iuran"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeSource struct {
	snapshot iuran.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() iuran.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                   { return f.dropped }

func scrape(t *testing.T, src MetricsSource) string {
	t.Helper()
	h, err := Handler(src)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestCollectNothingWhenMetricsDisabled(t *testing.T) {
	out := scrape(t, fakeSource{
		snapshot: iuran.MetricsSnapshot{
			Counters:   map[iuran.MetricID]uint64{},
			Histograms: map[iuran.MetricID][]uint64{},
		},
	})
	if strings.Contains(out, "iuran_") {
		t.Fatalf("expected no iuran series, got:\n%s", out)
	}
}

func TestCollectCountersAndHistograms(t *testing.T) {
	out := scrape(t, fakeSource{
		snapshot: iuran.MetricsSnapshot{
			Counters: map[iuran.MetricID]uint64{
				iuran.MetricLoginSuccess:        7,
				iuran.MetricEncryptionDowngrade: 1,
			},
			Histograms: map[iuran.MetricID][]uint64{
				iuran.MetricAPILatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	for _, want := range []string{
		"iuran_login_success_total 7",
		"iuran_storage_encryption_downgrade_total 1",
		"iuran_logout_total 0",
		`iuran_api_latency_seconds_bucket{le="0.005"} 1`,
		`iuran_api_latency_seconds_bucket{le="0.5"} 28`,
		`iuran_api_latency_seconds_bucket{le="+Inf"} 36`,
		"iuran_api_latency_seconds_count 36",
		"iuran_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "iuran_login_latency_seconds_bucket") {
		t.Fatal("histograms absent from the snapshot must not be emitted")
	}
}

func TestCollectorRegistersCleanly(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(NewCollector(fakeSource{})); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := reg.Gather(); err != nil {
		t.Fatalf("gather: %v", err)
	}
}

func TestCollectorWithClient(t *testing.T) {
	cfg := iuran.DefaultConfig()
	cfg.API.BaseURL = "https://api.desa.id"
	cfg.Storage.Backend = iuran.BackendMemory
	c, err := iuran.New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer c.Close()

	c.Logout(t.Context())

	out := scrape(t, c)
	if !strings.Contains(out, "iuran_logout_total 1") {
		t.Fatalf("expected logout counter, got:\n%s", out)
	}
}
