package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "personstore", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "personstore", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)

	// Operations counts service operations by op and outcome (ok|no_match|partial|invalid|backend_error).
	Operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "personstore", Name: "operations_total", Help: "Person operations by outcome."},
		[]string{"op", "outcome"},
	)
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "personstore", Name: "operation_duration_seconds", Help: "Latency of person operations.", Buckets: prometheus.DefBuckets},
		[]string{"op"},
	)
	DocumentsMatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "personstore", Name: "documents_matched_total", Help: "Documents selected by match queries."},
		[]string{"op"},
	)
	WriteFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "personstore", Name: "document_write_failures_total", Help: "Per-document write failures inside a batch."},
		[]string{"op"},
	)
)

// RegisterCollectors registers every collector on reg. Collectors that are
// already registered are skipped.
func RegisterCollectors(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		RateLimitAllowed, RateLimitRejected,
		Operations, OperationDuration, DocumentsMatched, WriteFailures,
	} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}
