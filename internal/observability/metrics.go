// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the accountd Prometheus collectors. It satisfies
// auth.Recorder and is shared by the HTTP layer.
type Metrics struct {
	authOperations  *prometheus.CounterVec
	tokenRejections *prometheus.CounterVec
	hashDuration    *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	rateLimited     prometheus.Counter
}

// NewMetrics creates and registers the accountd metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		authOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accountd_auth_operations_total",
				Help: "Total number of authentication operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		tokenRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accountd_auth_token_rejections_total",
				Help: "Total number of rejected bearer tokens by reason",
			},
			[]string{"reason"},
		),
		hashDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "accountd_password_hash_duration_seconds",
				Help:    "Time spent hashing or verifying passwords",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
			},
			[]string{"operation"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accountd_http_requests_total",
				Help: "Total number of HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "accountd_http_request_duration_seconds",
				Help:    "HTTP request latency by route and method",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		rateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "accountd_http_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),
	}

	reg.MustRegister(
		m.authOperations,
		m.tokenRejections,
		m.hashDuration,
		m.httpRequests,
		m.httpDuration,
		m.rateLimited,
	)

	return m
}

// AuthOutcome counts one completed authentication operation.
func (m *Metrics) AuthOutcome(operation, outcome string) {
	m.authOperations.WithLabelValues(operation, outcome).Inc()
}

// TokenRejected counts a refused bearer token.
func (m *Metrics) TokenRejected(reason string) {
	m.tokenRejections.WithLabelValues(reason).Inc()
}

// HashDuration observes one hash or verify call.
func (m *Metrics) HashDuration(operation string, d time.Duration) {
	m.hashDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveRequest records a served HTTP request. route is the matched route
// pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	method = methodLabel(method)
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// RateLimited counts a request refused by the rate limiter.
func (m *Metrics) RateLimited() {
	m.rateLimited.Inc()
}

// methodLabel maps non-standard methods to "other" so clients cannot mint
// label values.
func methodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodConnect, http.MethodOptions, http.MethodTrace:
		return method
	default:
		return "other"
	}
}
