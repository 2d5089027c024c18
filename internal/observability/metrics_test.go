// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/holomush/accountd/internal/auth"
)

var _ auth.Recorder = (*Metrics)(nil)

func TestMetrics_AuthOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.AuthOutcome(auth.OpLogin, auth.OutcomeSuccess)
	m.AuthOutcome(auth.OpLogin, auth.OutcomeSuccess)
	m.AuthOutcome(auth.OpLogin, auth.OutcomeInvalidCredentials)

	assert.InDelta(t, 2, testutil.ToFloat64(m.authOperations.WithLabelValues(auth.OpLogin, auth.OutcomeSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.authOperations.WithLabelValues(auth.OpLogin, auth.OutcomeInvalidCredentials)), 0)
}

func TestMetrics_TokenRejected(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.TokenRejected(auth.ReasonExpired)

	assert.InDelta(t, 1, testutil.ToFloat64(m.tokenRejections.WithLabelValues(auth.ReasonExpired)), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.tokenRejections.WithLabelValues(auth.ReasonRevoked)), 0)
}

func TestMetrics_HashDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.HashDuration("hash", 50*time.Millisecond)
	m.HashDuration("verify", 40*time.Millisecond)

	assert.Equal(t, 2, testutil.CollectAndCount(m.hashDuration))
}

func TestMetrics_ObserveRequest(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveRequest("/api/users/me", http.MethodGet, http.StatusUnauthorized, time.Millisecond)

	assert.InDelta(t, 1, testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/users/me", http.MethodGet, "401")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.httpDuration))
}

func TestMetrics_ObserveRequestBoundsMethodLabel(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	for _, method := range []string{"FOO", "BAR", "PROPFIND", http.MethodPost} {
		m.ObserveRequest("unmatched", method, http.StatusMethodNotAllowed, time.Millisecond)
	}

	assert.InDelta(t, 3, testutil.ToFloat64(m.httpRequests.WithLabelValues("unmatched", "other", "405")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.httpRequests.WithLabelValues("unmatched", http.MethodPost, "405")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.httpRequests))
}

func TestMetrics_RateLimited(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RateLimited()
	m.RateLimited()

	assert.InDelta(t, 2, testutil.ToFloat64(m.rateLimited), 0)
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)

	assert.Panics(t, func() { NewMetrics(reg) })
}
