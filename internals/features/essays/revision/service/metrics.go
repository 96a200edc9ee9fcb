package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	model "essaysmaster_backend/internals/features/essays/revision/model"
)

var (
	roundsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "essay_revision",
		Subsystem: "rounds",
		Name:      "processed_total",
		Help:      "Round requests by kind and outcome.",
	}, []string{"kind", "outcome"})

	roundLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "essay_revision",
		Subsystem: "rounds",
		Name:      "duration_seconds",
		Help:      "End-to-end round processing latency.",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 180},
	}, []string{"kind"})

	validationScores = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "essay_revision",
		Subsystem: "rounds",
		Name:      "validation_score",
		Help:      "Scores returned by validation rounds.",
		Buckets:   prometheus.LinearBuckets(0, 10, 11),
	})

	sessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "essay_revision",
		Subsystem: "sessions",
		Name:      "created_total",
		Help:      "Sessions inserted.",
	})

	progressEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "essay_revision",
		Subsystem: "progress",
		Name:      "evaluations_total",
		Help:      "Background progress evaluations by outcome.",
	}, []string{"outcome"})
)

func observeRound(round int, start time.Time, err error) {
	kind := string(model.KindOfRound(round))
	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
	}
	roundsProcessed.WithLabelValues(kind, outcome).Inc()
	roundLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
