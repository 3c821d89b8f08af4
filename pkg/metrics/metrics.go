package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	shopCollector = "shop_collector"

	keywordsProcessedTotal = "keywords_processed_total"
	listingsStoredTotal    = "listings_stored_total"
	activeRunsCount        = "active_runs_count"
	runDurationSeconds     = "run_duration_seconds"

	// Labels
	keywordOutcomeLabel = "outcome"
	listingOpLabel      = "op"
	runStatusLabel      = "status"
)

/**
* Metrics definition
**/
var keywordsProcessedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: shopCollector,
		Name:      keywordsProcessedTotal,
		Help:      "number of batch keywords processed partitioned by outcome",
	},
	[]string{keywordOutcomeLabel},
)

var listingsStoredTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: shopCollector,
		Name:      listingsStoredTotal,
		Help:      "number of listings written to the store partitioned by op (new/updated)",
	},
	[]string{listingOpLabel},
)

var activeRunsCountMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: shopCollector,
		Name:      activeRunsCount,
		Help:      "number of batch runs currently executing",
	},
)

var runDurationSecondsMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Subsystem: shopCollector,
		Name:      runDurationSeconds,
		Help:      "wall time of finished batch runs partitioned by terminal status",
		Buckets:   []float64{10, 60, 300, 900, 3600, 14400},
	},
	[]string{runStatusLabel},
)

func IncreaseKeywordsProcessedMetric(outcome string) {
	keywordsProcessedTotalMetric.With(prometheus.Labels{keywordOutcomeLabel: outcome}).Inc()
}

func AddListingsStoredMetric(op string, count int) {
	listingsStoredTotalMetric.With(prometheus.Labels{listingOpLabel: op}).Add(float64(count))
}

func SetActiveRunsMetric(count int) {
	activeRunsCountMetric.Set(float64(count))
}

func ObserveRunDurationMetric(status string, seconds float64) {
	runDurationSecondsMetric.With(prometheus.Labels{runStatusLabel: status}).Observe(seconds)
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(keywordsProcessedTotalMetric)
	prometheus.MustRegister(listingsStoredTotalMetric)
	prometheus.MustRegister(activeRunsCountMetric)
	prometheus.MustRegister(runDurationSecondsMetric)
}
