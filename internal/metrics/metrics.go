// Package metrics holds the Prometheus collectors of the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth outcomes recorded by RecordAuth.
const (
	OutcomeSuccess      = "success"
	OutcomeInvalid      = "invalid_input"
	OutcomeNotFound     = "not_found"
	OutcomeBadPassword  = "bad_password"
	OutcomeConflict     = "conflict"
	OutcomeInternalFail = "error"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "userapi_http_requests_total",
		Help: "Total number of HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "userapi_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// authAttempts counts login and register calls by outcome.
	authAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "userapi_auth_attempts_total",
		Help: "Total number of login and registration attempts by outcome",
	}, []string{"operation", "outcome"})
)

// ObserveRequest records one finished HTTP request.
func ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordAuth records the outcome of a login or register call.
func RecordAuth(operation, outcome string) {
	authAttempts.WithLabelValues(operation, outcome).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
