package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestSaleMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSaleMetrics(reg)

	m.ObserveDuration("record", 120*time.Millisecond)
	m.IncRecorded("completed")
	m.IncReversed("refunded")
	m.IncRejection("INSUFFICIENT_STOCK")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "sales_recorded_total", "status", "completed"); err != nil {
		t.Fatalf("fetch recorded: %v", err)
	} else if got != 1 {
		t.Fatalf("expected recorded=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "sales_reversed_total", "status", "refunded"); err != nil {
		t.Fatalf("fetch reversed: %v", err)
	} else if got != 1 {
		t.Fatalf("expected reversed=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "sale_rejections_total", "code", "INSUFFICIENT_STOCK"); err != nil {
		t.Fatalf("fetch rejections: %v", err)
	} else if got != 1 {
		t.Fatalf("expected rejections=1, got %f", got)
	}
}

func TestSaleMetricsNilSafe(t *testing.T) {
	var m *SaleMetrics
	m.IncRecorded("completed")
	m.ObserveDuration("record", time.Second)

	empty := NewSaleMetrics(nil)
	empty.IncRejection("TIMEOUT")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					return metric.GetCounter().GetValue(), nil
				}
			}
		}
	}
	return 0, fmt.Errorf("metric %q with %s=%s not found", name, label, value)
}
