// Package metrics exposes Prometheus collectors for the finder.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesVisitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finder_pages_visited_total",
		Help: "Total number of search result pages fetched.",
	})

	fragmentsScannedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finder_fragments_scanned_total",
		Help: "Total number of result-item fragments scanned.",
	})

	targetsFoundTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finder_targets_found_total",
		Help: "Total number of target documents matched and recorded.",
	})

	roundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finder_rounds_total",
		Help: "Total number of scheduling rounds run, including retries.",
	})

	workerErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finder_worker_errors_total",
		Help: "Total number of navigation or page-level worker errors.",
	})

	activeWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "finder_active_workers",
		Help: "Number of workers currently walking assigned pages.",
	})
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePageVisited increments the fetched-page counter.
func ObservePageVisited() {
	pagesVisitedTotal.Inc()
}

// ObserveFragments adds the number of fragments scanned on one page.
func ObserveFragments(n int) {
	if n > 0 {
		fragmentsScannedTotal.Add(float64(n))
	}
}

// ObserveTargetFound increments the matched-target counter.
func ObserveTargetFound() {
	targetsFoundTotal.Inc()
}

// ObserveRound increments the scheduling-round counter.
func ObserveRound() {
	roundsTotal.Inc()
}

// ObserveWorkerError increments the worker error counter.
func ObserveWorkerError() {
	workerErrorsTotal.Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	activeWorkers.Dec()
}
