// SPDX-License-Identifier: MIT

package zapi

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zattoo_epg_upstream_requests_total",
		Help: "Upstream API requests by operation and outcome",
	}, []string{"operation", "outcome"}) // outcome=success|timeout|unavailable|bad_status|unauthorized|bad_response|not_successful

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zattoo_epg_upstream_request_duration_seconds",
		Help:    "Upstream API request latency by operation",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"operation"})
)

func recordRequest(op, outcome string, elapsed time.Duration) {
	requestsTotal.WithLabelValues(op, outcome).Inc()
	requestDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrBadStatus):
		return "bad_status"
	case errors.Is(err, ErrBadResponse):
		return "bad_response"
	case errors.Is(err, ErrNotSuccessful):
		return "not_successful"
	default:
		return "unavailable"
	}
}
