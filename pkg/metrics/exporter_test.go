package metrics_test

import (
	"testing"

	"github.com/downfa11-org/go-shuffle/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func getCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	_ = c.Write(m)
	return m.GetCounter().GetValue()
}

func getHistogramCount(h prometheus.Histogram) uint64 {
	m := &dto.Metric{}
	_ = h.Write(m)
	return m.GetHistogram().GetSampleCount()
}

func TestPushServed(t *testing.T) {
	initialUnits := getCounterValue(metrics.UnitsServed)
	initialBytes := getCounterValue(metrics.BytesServed)
	initialPolls := getHistogramCount(metrics.PollLatencyHist)

	metrics.PushServed(128, 0.001)
	metrics.PushServed(64, 0.002)

	if got := getCounterValue(metrics.UnitsServed); got != initialUnits+2 {
		t.Fatalf("UnitsServed expected %v, got %v", initialUnits+2, got)
	}
	if got := getCounterValue(metrics.BytesServed); got != initialBytes+192 {
		t.Fatalf("BytesServed expected %v, got %v", initialBytes+192, got)
	}
	if got := getHistogramCount(metrics.PollLatencyHist); got != initialPolls+2 {
		t.Fatalf("PollLatencyHist count expected %v, got %v", initialPolls+2, got)
	}
}

func TestPoolExhaustionCounter(t *testing.T) {
	initial := getCounterValue(metrics.PoolExhaustions)
	metrics.PoolExhaustions.Inc()
	if got := getCounterValue(metrics.PoolExhaustions); got != initial+1 {
		t.Fatalf("PoolExhaustions expected %v, got %v", initial+1, got)
	}
}
