package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	LoanBorrow = "borrow"
	LoanReturn = "return"

	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// LibraryMetrics tracks lending and content activity.
type LibraryMetrics struct {
	loans         *prometheus.CounterVec
	fines         prometheus.Counter
	contentEvents *prometheus.CounterVec
}

// NewLibraryMetrics registers the domain metrics on the provided registerer.
func NewLibraryMetrics(reg prometheus.Registerer) *LibraryMetrics {
	if reg == nil {
		return &LibraryMetrics{}
	}
	loans := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "library_loan_operations_total",
		Help: "Borrow and return attempts by outcome.",
	}, []string{"operation", "outcome"})
	fines := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "library_fines_assessed_total",
		Help: "Sum of overdue fines assessed, in currency units.",
	})
	contentEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "library_content_events_total",
		Help: "Digital content uploads, views, downloads and reviews.",
	}, []string{"event"})
	reg.MustRegister(loans, fines, contentEvents)
	return &LibraryMetrics{loans: loans, fines: fines, contentEvents: contentEvents}
}

// RecordLoan counts a borrow or return attempt.
func (m *LibraryMetrics) RecordLoan(operation, outcome string) {
	if m == nil || m.loans == nil {
		return
	}
	m.loans.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

// AddFine adds an assessed fine. Non-positive amounts are ignored.
func (m *LibraryMetrics) AddFine(amount float64) {
	if m == nil || m.fines == nil || amount <= 0 {
		return
	}
	m.fines.Add(amount)
}

// RecordContentEvent counts a content lifecycle event.
func (m *LibraryMetrics) RecordContentEvent(event string) {
	if m == nil || m.contentEvents == nil {
		return
	}
	m.contentEvents.WithLabelValues(normalizeLabel(event)).Inc()
}
