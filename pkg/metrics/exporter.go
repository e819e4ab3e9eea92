package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	prometheus.MustRegister(UnitsServed, BytesServed, PoolExhaustions, AvailabilityNotifications, ActiveViews, PollLatencyHist)
}

func StartMetricsServer(port int) {
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", port)
		fmt.Println("[METRICS] Prometheus exporter listening on", addr)
		if err := http.ListenAndServe(addr, nil); err != nil {
			fmt.Printf("[METRICS] Failed to start metrics server: %v\n", err)
		}
	}()
}

// PushServed updates the serving metrics for one delivered unit.
func PushServed(payloadBytes int, pollSeconds float64) {
	UnitsServed.Inc()
	BytesServed.Add(float64(payloadBytes))
	PollLatencyHist.Observe(pollSeconds)
}
