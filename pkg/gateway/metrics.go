package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"havenstore/pkg/errs"
)

var (
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "havenstore_mutations_total",
		Help: "Mutations processed, by action and outcome.",
	}, []string{"action", "outcome"})

	mutationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "havenstore_mutation_duration_seconds",
		Help:    "Wall time spent applying a mutation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})
)

func observeMutation(action string, err error, d time.Duration) {
	if action == "" {
		action = "create"
	}
	outcome := "ok"
	if err != nil {
		outcome = outcomeFor(err)
	}
	mutationsTotal.WithLabelValues(action, outcome).Inc()
	mutationLatency.WithLabelValues(action).Observe(d.Seconds())
}

func outcomeFor(err error) string {
	switch errs.HTTPStatus(err) {
	case 403:
		return "forbidden"
	case 404:
		return "not_found"
	case 409:
		return "conflict"
	case 429:
		return "rate_limited"
	case 400:
		return "invalid"
	default:
		return "error"
	}
}
