package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// TradesRecorded counts trades ingested into the volume window by side (buy/sell)
var TradesRecorded = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mineconomy_trades_recorded_total",
		Help: "Total number of trades recorded into the volume window",
	},
	[]string{"side"},
)

// Recomputation cycle metrics
var (
	CyclesRun = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mineconomy_recompute_cycles_total",
			Help: "Total recomputation cycles by result (ok/failed)",
		},
		[]string{"result"},
	)

	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mineconomy_recompute_cycle_duration_seconds",
			Help:    "Wall-clock duration of a full recomputation cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	ItemsRepriced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mineconomy_items_repriced_total",
			Help: "Items whose published price changed in a cycle",
		},
	)

	ItemsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mineconomy_items_skipped_total",
			Help: "Items whose recomputed price was within epsilon of the stored price",
		},
	)

	ItemFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mineconomy_item_failures_total",
			Help: "Per-item recomputation failures contained within a cycle",
		},
	)

	BucketsPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mineconomy_volume_buckets_purged_total",
			Help: "Expired trade volume buckets reclaimed by the hourly purge",
		},
	)
)

func init() {
	prometheus.MustRegister(TradesRecorded)
	prometheus.MustRegister(CyclesRun, CycleDuration, ItemsRepriced, ItemsSkipped, ItemFailures, BucketsPurged)
}
