package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// StockMetrics counts reservation engine activity.
type StockMetrics struct {
	operations    *prometheus.CounterVec
	auditFailures *prometheus.CounterVec
}

// NewStockMetrics registers the stock counters on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewStockMetrics(reg prometheus.Registerer) *StockMetrics {
	if reg == nil {
		return &StockMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_operations_total",
		Help: "Stock operations by product type, operation and outcome.",
	}, []string{"product_type", "operation", "outcome"})
	auditFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_audit_failures_total",
		Help: "Audit or metrics writes that failed and were rolled back.",
	}, []string{"product_type"})
	reg.MustRegister(operations, auditFailures)
	return &StockMetrics{
		operations:    operations,
		auditFailures: auditFailures,
	}
}

// IncOperation counts one finished operation.
func (s *StockMetrics) IncOperation(productType, operation, outcome string) {
	if s == nil || s.operations == nil {
		return
	}
	s.operations.WithLabelValues(normalizeLabel(productType), normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

// IncAuditFailure counts an isolated audit write failure.
func (s *StockMetrics) IncAuditFailure(productType string) {
	if s == nil || s.auditFailures == nil {
		return
	}
	s.auditFailures.WithLabelValues(normalizeLabel(productType)).Inc()
}
