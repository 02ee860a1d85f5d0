package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveChunk(t *testing.T) {
	m := New()
	m.ObserveChunk("text", OutcomeSuccess, 2*time.Second)
	m.ObserveChunk("text", OutcomeSuccess, time.Second)
	m.ObserveChunk("image", OutcomeFailed, time.Second)

	if got := testutil.ToFloat64(m.chunks.WithLabelValues("text", OutcomeSuccess)); got != 2 {
		t.Fatalf("text success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.chunks.WithLabelValues("image", OutcomeFailed)); got != 1 {
		t.Fatalf("image failed = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.chunkDuration); got != 2 {
		t.Fatalf("duration series = %d, want 2", got)
	}
}

func TestCounters(t *testing.T) {
	m := New()
	m.JobCreated("text")
	m.JobFinalized("completed")
	m.CreditDebited()
	m.CreditDebited()
	m.CreditExhausted()
	m.RateLimited("chunk")

	if got := testutil.ToFloat64(m.creditsDebited); got != 2 {
		t.Fatalf("credits debited = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.creditsExhausted); got != 1 {
		t.Fatalf("credits exhausted = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.jobsFinalized.WithLabelValues("completed")); got != 1 {
		t.Fatalf("finalized = %v, want 1", got)
	}
}

func TestObserveSQL(t *testing.T) {
	m := New()
	const marker = "0b6f3c1e-2a4d-4c8e-9f10-2b3c4d5e6f70"
	m.ObserveSQL(marker, time.Millisecond, nil)
	m.ObserveSQL(marker, time.Millisecond, fmt.Errorf("load job: %w", pgx.ErrNoRows))
	m.ObserveSQL(marker, time.Millisecond, errors.New("conn reset"))
	m.ObserveSQL(marker, time.Millisecond, nil)

	for result, want := range map[string]float64{"ok": 2, "empty": 1, "error": 1} {
		if got := testutil.ToFloat64(m.sqlStatements.WithLabelValues(marker, result)); got != want {
			t.Fatalf("sql %s = %v, want %v", result, got, want)
		}
	}
	if got := testutil.CollectAndCount(m.sqlDuration); got != 1 {
		t.Fatalf("duration series = %d, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveSQL("x", time.Millisecond, nil)
	m.JobCreated("text")
	m.ObserveChunk("text", OutcomeSuccess, time.Second)
	m.CreditDebited()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.JobCreated("image")
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `descriptai_bulk_jobs_created_total{kind="image"} 1`) {
		t.Fatalf("metrics output missing job counter:\n%s", rec.Body.String())
	}
}
