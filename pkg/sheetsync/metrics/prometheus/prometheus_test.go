package prommetrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func findFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestPrometheusMetrics_NewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, "test")

	if metrics == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestPrometheusMetrics_RecordUpsert(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, "test")

	metrics.RecordUpsert("created")
	metrics.RecordUpsert("updated")
	metrics.RecordUpsert("updated")

	mf := findFamily(t, reg, "test_upserts_total")
	if mf == nil {
		t.Fatal("Expected upserts_total to be registered")
	}

	counts := map[string]float64{}
	for _, m := range mf.GetMetric() {
		counts[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
	}
	if counts["created"] != 1 || counts["updated"] != 2 {
		t.Errorf("Unexpected upsert counts: %v", counts)
	}
}

func TestPrometheusMetrics_RecordStoreOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, "test")

	metrics.RecordStoreOperation("find", 10*time.Millisecond, nil)
	metrics.RecordStoreOperation("append_row", 20*time.Millisecond, errors.New("quota exceeded"))

	if findFamily(t, reg, "test_store_operation_duration_seconds") == nil {
		t.Error("Expected store operation duration to be recorded")
	}

	errs := findFamily(t, reg, "test_store_operation_errors_total")
	if errs == nil {
		t.Fatal("Expected store operation errors to be recorded")
	}
	if len(errs.GetMetric()) != 1 || errs.GetMetric()[0].GetLabel()[0].GetValue() != "append_row" {
		t.Errorf("Expected a single append_row error series, got %v", errs.GetMetric())
	}
}
