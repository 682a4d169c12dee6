// Package metrics exposes Prometheus collectors for the harvest pipeline.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesTotal      *prometheus.CounterVec
	productsTotal   prometheus.Counter
	variantsTotal   prometheus.Counter
	reviewsTotal    prometheus.Counter
	mentionsTotal   *prometheus.CounterVec
	inFlightFetches prometheus.Gauge
	fetchSeconds    prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fiberloom_pages_total",
				Help: "Product pages processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)
		productsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "fiberloom_products_total",
			Help: "Product rows upserted.",
		})
		variantsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "fiberloom_variants_total",
			Help: "Variant rows appended.",
		})
		reviewsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "fiberloom_reviews_total",
			Help: "Review rows submitted (duplicates are absorbed by the store).",
		})
		mentionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fiberloom_material_mentions_total",
				Help: "Normalized material mentions, labeled by provenance.",
			},
			[]string{"source"},
		)
		inFlightFetches = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fiberloom_inflight_fetches",
			Help: "Fetches currently in flight.",
		})
		fetchSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fiberloom_fetch_duration_seconds",
			Help:    "Page fetch latency.",
			Buckets: prometheus.DefBuckets,
		})
	})
}

// ObservePage records the outcome of one processed URL
// ("fetched" or "failed").
func ObservePage(outcome string) {
	if pagesTotal != nil {
		pagesTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveProduct counts a product upsert.
func ObserveProduct() {
	if productsTotal != nil {
		productsTotal.Inc()
	}
}

// ObserveVariant counts a variant append.
func ObserveVariant() {
	if variantsTotal != nil {
		variantsTotal.Inc()
	}
}

// ObserveReview counts a review submission.
func ObserveReview() {
	if reviewsTotal != nil {
		reviewsTotal.Inc()
	}
}

// ObserveMention counts a persisted material mention by provenance.
func ObserveMention(source string) {
	if mentionsTotal != nil {
		mentionsTotal.WithLabelValues(source).Inc()
	}
}

// FetchStarted marks a fetch as in flight.
func FetchStarted() {
	if inFlightFetches != nil {
		inFlightFetches.Inc()
	}
}

// FetchFinished marks a fetch as done and records its latency in seconds.
func FetchFinished(seconds float64) {
	if inFlightFetches != nil {
		inFlightFetches.Dec()
	}
	if fetchSeconds != nil {
		fetchSeconds.Observe(seconds)
	}
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
