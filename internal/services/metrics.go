// Package services – delivery metrics
//
// Prometheus collectors for the delivery engine. Labels are kept to the small
// closed sets of error codes and outcomes so cardinality stays bounded.
package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// deliveryAttempts counts individual StickerBot API calls, including the
	// ones that are later retried.
	deliveryAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "delivery_attempts_total",
			Help: "Total number of StickerBot API call attempts.",
		},
	)

	// deliveryRetries counts scheduled backoff retries by error code.
	deliveryRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_retries_total",
			Help: "Total number of backoff retries, by error code.",
		},
		[]string{"code"},
	)

	// deliveryOutcomes counts terminal send outcomes. The code label is empty
	// for successful deliveries.
	deliveryOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_outcomes_total",
			Help: "Terminal delivery outcomes, by status and error code.",
		},
		[]string{"status", "code"},
	)

	// manualRetryInitiations counts manual-retry requests by result
	// (accepted, or one of the rejection codes).
	manualRetryInitiations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "manual_retry_initiations_total",
			Help: "Manual retry initiations, by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(deliveryAttempts, deliveryRetries, deliveryOutcomes, manualRetryInitiations)
}
