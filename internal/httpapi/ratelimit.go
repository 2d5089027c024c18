// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter defaults.
const (
	// DefaultCleanupInterval is how often idle client limiters are swept.
	DefaultCleanupInterval = 5 * time.Minute
	// DefaultMaxClients caps the number of tracked client buckets.
	DefaultMaxClients = 10000
)

// RateLimitConfig configures per-client token buckets.
type RateLimitConfig struct {
	// RPS is the sustained request rate per client. Zero disables limiting.
	RPS float64
	// Burst is the bucket size.
	Burst int
	// CleanupInterval defaults to DefaultCleanupInterval.
	CleanupInterval time.Duration
	// MaxClients defaults to DefaultMaxClients. When full, the least
	// recently seen client is evicted.
	MaxClients int
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter keeps one token bucket per client address.
type RateLimiter struct {
	cfg      RateLimitConfig
	observer RequestObserver
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[string]*clientLimiter

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimiter creates a RateLimiter and starts its background sweep.
// Call Stop to release it. Returns nil when cfg.RPS is zero.
func NewRateLimiter(cfg RateLimitConfig, observer RequestObserver, logger *slog.Logger) *RateLimiter {
	if cfg.RPS <= 0 {
		return nil
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = DefaultMaxClients
	}
	if logger == nil {
		logger = slog.Default()
	}

	rl := &RateLimiter{
		cfg:      cfg,
		observer: observer,
		logger:   logger,
		clients:  make(map[string]*clientLimiter),
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop ends the background sweep. It is safe to call more than once and on nil.
func (rl *RateLimiter) Stop() {
	if rl == nil {
		return
	}
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Middleware refuses requests over the client's budget with 429. A nil
// RateLimiter passes every request through.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if rl == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientKey(r)
		if !rl.allow(client) {
			if rl.observer != nil {
				rl.observer.RateLimited()
			}
			rl.logger.WarnContext(r.Context(), "rate limit exceeded", "client", client, "path", r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(rl.cfg.RPS)))
			writeCode(w, CodeRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientCount returns the number of tracked clients.
func (rl *RateLimiter) ClientCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *RateLimiter) allow(client string) bool {
	now := time.Now()

	rl.mu.Lock()
	cl, ok := rl.clients[client]
	if !ok {
		if len(rl.clients) >= rl.cfg.MaxClients {
			rl.evictOldestLocked()
		}
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(rl.cfg.RPS), rl.cfg.Burst)}
		rl.clients[client] = cl
	}
	cl.lastAccess = now
	rl.mu.Unlock()

	return cl.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			rl.sweep(now)
		case <-rl.stopCh:
			return
		}
	}
}

// sweep drops clients idle for more than two cleanup intervals.
func (rl *RateLimiter) sweep(now time.Time) {
	ttl := rl.cfg.CleanupInterval * 2

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for client, cl := range rl.clients {
		if now.Sub(cl.lastAccess) > ttl {
			delete(rl.clients, client)
		}
	}
}

// evictOldestLocked drops the least recently seen client. rl.mu must be held.
func (rl *RateLimiter) evictOldestLocked() {
	var (
		oldest     string
		oldestSeen time.Time
		found      bool
	)
	for client, cl := range rl.clients {
		if !found || cl.lastAccess.Before(oldestSeen) {
			oldest, oldestSeen, found = client, cl.lastAccess, true
		}
	}
	if found {
		delete(rl.clients, oldest)
	}
}

// clientKey is the remote host without port. RemoteAddr is the socket peer
// unless the router trusts forwarding headers and installed RealIP.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func retryAfterSeconds(rps float64) int {
	secs := int(math.Ceil(1 / rps))
	if secs < 1 {
		secs = 1
	}
	return secs
}
