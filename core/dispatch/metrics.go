package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	solvesTotal       *prometheus.CounterVec
	solveDuration     prometheus.Histogram
	freeSteamFallback prometheus.Counter
	publishTotal      *prometheus.CounterVec
	journalFailures   prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, prometheus.Histogram, prometheus.Counter, *prometheus.CounterVec, prometheus.Counter) {
	solves := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimizer_solves_total",
			Help: "Number of dispatch solves by solver status",
		},
		[]string{"status"},
	)
	dur := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "optimizer_solve_duration_seconds",
			Help:    "Wall time of a dispatch LP solve",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)
	fb := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "free_steam_fallback_total",
			Help: "Number of solves that used the free steam fallback flow",
		},
	)
	pub := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "result_publish_total",
			Help: "Number of result publications by publisher and outcome",
		},
		[]string{"publisher", "outcome"},
	)
	jf := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "journal_append_failure_total",
			Help: "Number of results that could not be written to the journal",
		},
	)
	return solves, dur, fb, pub, jf
}

func init() {
	solvesTotal, solveDuration, freeSteamFallback, publishTotal, journalFailures = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(solvesTotal, solveDuration, freeSteamFallback, publishTotal, journalFailures)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	solvesTotal, solveDuration, freeSteamFallback, publishTotal, journalFailures = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
