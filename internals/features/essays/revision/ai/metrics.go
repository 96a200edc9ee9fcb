package ai

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	collaboratorCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "essay_revision",
		Subsystem: "collaborator",
		Name:      "attempts_total",
		Help:      "Provider attempts by operation and outcome.",
	}, []string{"provider", "operation", "outcome"})

	collaboratorLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "essay_revision",
		Subsystem: "collaborator",
		Name:      "attempt_duration_seconds",
		Help:      "Provider attempt latency.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
	}, []string{"provider"})
)

func observeCall(provider, op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	collaboratorCalls.WithLabelValues(provider, op, outcome).Inc()
	collaboratorLatency.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}
