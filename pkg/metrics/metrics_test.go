package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHTTPMetricsExportsCounterAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe(http.MethodGet, "/api/books/{id}", http.StatusOK, 120*time.Millisecond)
	m.Observe(http.MethodGet, "/api/books/{id}", http.StatusOK, 80*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "http_requests_total", "route", "/api/books/{id}"); err != nil {
		t.Fatalf("fetch requests: %v", err)
	} else if got != 2 {
		t.Fatalf("expected 2 requests, got %f", got)
	}
	if got, err := fetchHistogramSum(mfs, "http_request_duration_seconds", "method", http.MethodGet); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got < 0.19 {
		t.Fatalf("expected duration sum ~0.2, got %f", got)
	}
}

func TestLibraryMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLibraryMetrics(reg)
	m.RecordLoan(LoanBorrow, OutcomeOK)
	m.RecordLoan(LoanBorrow, OutcomeRejected)
	m.AddFine(20)
	m.AddFine(-5)
	m.RecordContentEvent("download")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "library_loan_operations_total", "outcome", OutcomeRejected); err != nil || got != 1 {
		t.Fatalf("expected rejected borrow counted once, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "library_content_events_total", "event", "download"); err != nil || got != 1 {
		t.Fatalf("expected one download event, got %f (%v)", got, err)
	}
	fines := findMetricFamily(mfs, "library_fines_assessed_total")
	if fines == nil || fines.GetMetric()[0].GetCounter().GetValue() != 20 {
		t.Fatalf("expected fines total 20")
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var h *HTTPMetrics
	h.Observe(http.MethodGet, "/", 200, time.Millisecond)
	var l *LibraryMetrics
	l.RecordLoan(LoanReturn, OutcomeOK)
	l.AddFine(10)
	l.RecordContentEvent("view")

	NewLibraryMetrics(nil).RecordLoan(LoanReturn, OutcomeError)
}
