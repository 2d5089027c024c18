// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestFrom(remote string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remote
	return req
}

func TestRateLimiter_RefusesOverBudget(t *testing.T) {
	observer := &fakeObserver{}
	rl := NewRateLimiter(RateLimitConfig{RPS: 0.01, Burst: 2}, observer, discard)
	t.Cleanup(rl.Stop)
	h := rl.Middleware(okHandler())

	for i := range 2 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, requestFrom("192.0.2.1:1000"))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("192.0.2.1:2000"))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "100", rec.Header().Get("Retry-After"))
	assert.Equal(t, CodeRateLimited, decodeError(t, rec).Code)
	_, limited := observer.snapshot()
	assert.Equal(t, 1, limited)
}

func TestRateLimiter_ClientsHaveSeparateBudgets(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RPS: 0.01, Burst: 1}, nil, discard)
	t.Cleanup(rl.Stop)
	h := rl.Middleware(okHandler())

	for _, remote := range []string{"192.0.2.1:1", "192.0.2.2:1", "[2001:db8::1]:1"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, requestFrom(remote))
		assert.Equal(t, http.StatusOK, rec.Code, remote)
	}
	assert.Equal(t, 3, rl.ClientCount())
}

func TestRateLimiter_DisabledPassesThrough(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RPS: 0, Burst: 1}, nil, discard)
	require.Nil(t, rl)
	h := rl.Middleware(okHandler())

	for range 50 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, requestFrom("192.0.2.1:1"))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rl.Stop()
}

func TestRateLimiter_SweepDropsIdleClients(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RPS: 1, Burst: 1, CleanupInterval: time.Hour}, nil, discard)
	t.Cleanup(rl.Stop)

	rl.allow("192.0.2.1")
	rl.allow("192.0.2.2")
	require.Equal(t, 2, rl.ClientCount())

	rl.sweep(time.Now().Add(30 * time.Minute))
	assert.Equal(t, 2, rl.ClientCount())

	rl.sweep(time.Now().Add(3 * time.Hour))
	assert.Equal(t, 0, rl.ClientCount())
}

func TestRateLimiter_StopReleasesGoroutine(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rl := NewRateLimiter(RateLimitConfig{RPS: 1, Burst: 1, CleanupInterval: time.Millisecond}, nil, discard)
	time.Sleep(5 * time.Millisecond)
	rl.Stop()
	rl.Stop()
}

func TestRateLimiter_RouterReturns429(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RPS: 0.01, Burst: 1}, nil, discard)
	t.Cleanup(rl.Stop)
	router := NewRouter(RouterDeps{Service: newMockAuthService(t), Logger: discard, RateLimiter: rl})

	first := do(t, router, http.MethodGet, "/api/users/me", "")
	second := do(t, router, http.MethodGet, "/api/users/me", "")

	assert.Equal(t, http.StatusUnauthorized, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRateLimiter_IgnoresForwardedHeadersByDefault(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RPS: 0.01, Burst: 1}, nil, discard)
	t.Cleanup(rl.Stop)
	router := NewRouter(RouterDeps{Service: newMockAuthService(t), Logger: discard, RateLimiter: rl})

	limited := 0
	for i := range 50 {
		rec := do(t, router, http.MethodGet, "/api/users/me", "",
			"X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i),
			"X-Real-IP", fmt.Sprintf("203.0.113.%d", i))
		if rec.Code == http.StatusTooManyRequests {
			limited++
		}
	}

	assert.Equal(t, 49, limited, "rotating forwarding headers must not reset the budget")
	assert.Equal(t, 1, rl.ClientCount())
}

func TestRateLimiter_TrustedProxyUsesForwardedAddress(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RPS: 0.01, Burst: 1}, nil, discard)
	t.Cleanup(rl.Stop)
	router := NewRouter(RouterDeps{
		Service:               newMockAuthService(t),
		Logger:                discard,
		RateLimiter:           rl,
		TrustForwardedHeaders: true,
	})

	first := do(t, router, http.MethodGet, "/api/users/me", "", "X-Forwarded-For", "198.51.100.1")
	other := do(t, router, http.MethodGet, "/api/users/me", "", "X-Forwarded-For", "198.51.100.2")
	again := do(t, router, http.MethodGet, "/api/users/me", "", "X-Forwarded-For", "198.51.100.1")

	assert.Equal(t, http.StatusUnauthorized, first.Code)
	assert.Equal(t, http.StatusUnauthorized, other.Code)
	assert.Equal(t, http.StatusTooManyRequests, again.Code)
	assert.Equal(t, 2, rl.ClientCount())
}

func TestRateLimiter_CapsTrackedClients(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RPS: 0.01, Burst: 1, MaxClients: 3}, nil, discard)
	t.Cleanup(rl.Stop)

	require.True(t, rl.allow("192.0.2.1"))
	time.Sleep(time.Millisecond)
	require.True(t, rl.allow("192.0.2.2"))
	time.Sleep(time.Millisecond)
	require.True(t, rl.allow("192.0.2.3"))
	time.Sleep(time.Millisecond)
	assert.False(t, rl.allow("192.0.2.2"), "budget spent")

	for i := range 20 {
		rl.allow(fmt.Sprintf("198.51.100.%d", i))
		assert.LessOrEqual(t, rl.ClientCount(), 3)
	}
	assert.Equal(t, 3, rl.ClientCount())
}

func TestRateLimiter_EvictsLeastRecentlySeen(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RPS: 0.01, Burst: 1, MaxClients: 2}, nil, discard)
	t.Cleanup(rl.Stop)

	rl.allow("192.0.2.1")
	time.Sleep(time.Millisecond)
	rl.allow("192.0.2.2")
	time.Sleep(time.Millisecond)
	rl.allow("192.0.2.3")

	rl.mu.Lock()
	_, oldest := rl.clients["192.0.2.1"]
	_, newer := rl.clients["192.0.2.2"]
	rl.mu.Unlock()
	assert.False(t, oldest)
	assert.True(t, newer)
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, retryAfterSeconds(5))
	assert.Equal(t, 1, retryAfterSeconds(1))
	assert.Equal(t, 2, retryAfterSeconds(0.5))
}
