package obs

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// InvoicesSavedTotal counts invoice save outcomes.
	InvoicesSavedTotal *prometheus.CounterVec
	// InvoiceLinesTotal counts persisted invoice lines.
	InvoiceLinesTotal prometheus.Counter
	// InvoiceTotalMismatchTotal counts lines whose client total disagreed with the recomputed one.
	InvoiceTotalMismatchTotal prometheus.Counter
	// ItemsAddedTotal counts catalog insert outcomes.
	ItemsAddedTotal *prometheus.CounterVec
	// LoginAttemptsTotal counts login outcomes.
	LoginAttemptsTotal *prometheus.CounterVec
	// ReceiptsPrintedTotal counts receipt print job outcomes.
	ReceiptsPrintedTotal *prometheus.CounterVec
	// ReceiptPrintLatency records print latency in milliseconds.
	ReceiptPrintLatency prometheus.Histogram
	// BreakerState tracks circuit breaker state per target: 0 closed, 1 open, 2 half-open.
	BreakerState *prometheus.GaugeVec
	// BreakerTransitionsTotal counts circuit breaker state changes.
	BreakerTransitionsTotal *prometheus.CounterVec
)

func outcomes(namespace, name, help string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, []string{"result"})
}

// MustRegisterDomainMetrics creates the POS collectors and registers them
// with reg once per process. Until it runs, CountResult and Add are no-ops.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		InvoicesSavedTotal = register(reg, outcomes(namespace, "invoices_saved_total", "Invoice save outcomes."))
		ItemsAddedTotal = register(reg, outcomes(namespace, "catalog_items_added_total", "Catalog insert outcomes."))
		LoginAttemptsTotal = register(reg, outcomes(namespace, "login_attempts_total", "Login outcomes."))
		ReceiptsPrintedTotal = register(reg, outcomes(namespace, "receipts_printed_total", "Receipt print job outcomes."))

		InvoiceLinesTotal = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_lines_total",
			Help:      "Persisted invoice lines.",
		}))
		InvoiceTotalMismatchTotal = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_line_total_mismatch_total",
			Help:      "Invoice lines whose submitted total differed from the recomputed total.",
		}))
		ReceiptPrintLatency = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "receipt_print_duration_ms",
			Help:      "Time spent sending a receipt to the printer, in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}))
		BreakerState = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Circuit breaker state per target: 0=closed, 1=open, 2=half-open.",
		}, []string{"target"}))
		BreakerTransitionsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_transitions_total",
			Help:      "Circuit breaker state transitions.",
		}, []string{"target", "from", "to"}))
	})
}

// CountResult increments vec for result when the collector has been registered.
func CountResult(vec *prometheus.CounterVec, result string) {
	if vec == nil {
		return
	}
	vec.WithLabelValues(result).Inc()
}

// Add increments c by n when the collector has been registered.
func Add(c prometheus.Counter, n float64) {
	if c == nil || n <= 0 {
		return
	}
	c.Add(n)
}

// register adds c to reg. When an equal collector is already registered,
// as happens when tests build the router twice, that one is returned instead.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing
		}
	}
	panic(fmt.Errorf("register metric: %w", err))
}
