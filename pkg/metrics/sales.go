package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SaleMetrics records outcomes of the sale recording transaction.
type SaleMetrics struct {
	duration   *prometheus.HistogramVec
	recorded   *prometheus.CounterVec
	reversed   *prometheus.CounterVec
	rejections *prometheus.CounterVec
}

// NewSaleMetrics registers the sale metrics on the provided registerer.
func NewSaleMetrics(reg prometheus.Registerer) *SaleMetrics {
	if reg == nil {
		return &SaleMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sale_transaction_duration_seconds",
		Help:    "Duration of sale recording transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	recorded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_recorded_total",
		Help: "Sales committed, labelled by status.",
	}, []string{"status"})
	reversed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_reversed_total",
		Help: "Compensating reversals committed, labelled by target status.",
	}, []string{"status"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sale_rejections_total",
		Help: "Sales rejected before commit, labelled by error code.",
	}, []string{"code"})
	reg.MustRegister(duration, recorded, reversed, rejections)
	return &SaleMetrics{
		duration:   duration,
		recorded:   recorded,
		reversed:   reversed,
		rejections: rejections,
	}
}

// ObserveDuration records the elapsed time for the named operation.
func (s *SaleMetrics) ObserveDuration(operation string, duration time.Duration) {
	if s == nil || s.duration == nil {
		return
	}
	s.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncRecorded increments the committed-sale counter for the given status.
func (s *SaleMetrics) IncRecorded(status string) {
	if s == nil || s.recorded == nil {
		return
	}
	s.recorded.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncReversed increments the reversal counter for the given target status.
func (s *SaleMetrics) IncReversed(status string) {
	if s == nil || s.reversed == nil {
		return
	}
	s.reversed.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncRejection increments the rejection counter for the given error code.
func (s *SaleMetrics) IncRejection(code string) {
	if s == nil || s.rejections == nil {
		return
	}
	s.rejections.WithLabelValues(normalizeLabel(code)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
