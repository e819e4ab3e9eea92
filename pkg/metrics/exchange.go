package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	UnitsServed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shuffle_units_served_total",
		Help: "Total number of data units served to consumers",
	})

	BytesServed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shuffle_bytes_served_total",
		Help: "Total payload bytes served to consumers",
	})

	PoolExhaustions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shuffle_segment_pool_exhaustions_total",
		Help: "Total number of reads deferred because all pooled segments were outstanding",
	})

	AvailabilityNotifications = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shuffle_availability_notifications_total",
		Help: "Total number of data availability notifications delivered to listeners",
	})

	ActiveViews = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "shuffle_active_subpartition_views",
		Help: "Number of currently open subpartition views",
	})

	PollLatencyHist = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "shuffle_poll_latency_seconds",
		Help:    "Histogram of getNextRawMessage latency",
		Buckets: prometheus.DefBuckets,
	})
)
