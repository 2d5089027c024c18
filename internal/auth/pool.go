// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"runtime"
	"time"

	"github.com/samber/oops"
	"golang.org/x/sync/semaphore"
)

// HashPool bounds the number of password hashes computed concurrently.
// Hashing is CPU-bound; without a bound a burst of logins can occupy every
// core and stall request intake.
type HashPool struct {
	hasher   PasswordHasher
	sem      *semaphore.Weighted
	size     int64
	observer func(op string, d time.Duration)
}

// NewHashPool wraps hasher with a pool of size slots. A size of zero or
// less uses GOMAXPROCS.
func NewHashPool(hasher PasswordHasher, size int) *HashPool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &HashPool{
		hasher: hasher,
		sem:    semaphore.NewWeighted(int64(size)),
		size:   int64(size),
	}
}

// Size returns the number of concurrent slots.
func (p *HashPool) Size() int {
	return int(p.size)
}

// observe registers a callback receiving the duration of each hash or verify.
func (p *HashPool) observe(fn func(op string, d time.Duration)) {
	p.observer = fn
}

// Hash waits for a slot and hashes password. It returns early with the
// context error if ctx is done before a slot frees up.
func (p *HashPool) Hash(ctx context.Context, password string) (string, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", oops.Code("AUTH_HASH_POOL_WAIT").Wrap(err)
	}
	defer p.sem.Release(1)

	start := time.Now()
	digest, err := p.hasher.Hash(password)
	p.record("hash", start)
	return digest, err
}

// Verify waits for a slot and checks password against digest.
func (p *HashPool) Verify(ctx context.Context, password, digest string) (bool, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return false, oops.Code("AUTH_HASH_POOL_WAIT").Wrap(err)
	}
	defer p.sem.Release(1)

	start := time.Now()
	ok := p.hasher.Verify(password, digest)
	p.record("verify", start)
	return ok, nil
}

func (p *HashPool) record(op string, start time.Time) {
	if p.observer != nil {
		p.observer(op, time.Since(start))
	}
}
