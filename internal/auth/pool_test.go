// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/holomush/accountd/internal/auth"
	"github.com/holomush/accountd/internal/auth/mocks"
)

// blockingHasher counts concurrent Hash calls and blocks until released.
type blockingHasher struct {
	release  chan struct{}
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (h *blockingHasher) Hash(string) (string, error) {
	n := h.inFlight.Add(1)
	for {
		p := h.peak.Load()
		if n <= p || h.peak.CompareAndSwap(p, n) {
			break
		}
	}
	<-h.release
	h.inFlight.Add(-1)
	return "digest", nil
}

func (h *blockingHasher) Verify(string, string) bool { return false }

func TestHashPool_DefaultSize(t *testing.T) {
	pool := auth.NewHashPool(newFastHasher(t), 0)
	assert.Positive(t, pool.Size())
}

func TestHashPool_BoundsConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := &blockingHasher{release: make(chan struct{})}
	pool := auth.NewHashPool(h, 2)

	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pool.Hash(context.Background(), "pw")
			assert.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool { return h.inFlight.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(h.release)
	wg.Wait()

	assert.Equal(t, int32(2), h.peak.Load())
}

func TestHashPool_WaitHonoursContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := &blockingHasher{release: make(chan struct{})}
	pool := auth.NewHashPool(h, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = pool.Hash(context.Background(), "holder") //nolint:errcheck // occupies the only slot
	}()
	require.Eventually(t, func() bool { return h.inFlight.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := pool.Hash(ctx, "waiter")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = pool.Verify(ctx, "waiter", "digest")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(h.release)
	<-done
}

func TestHashPool_DelegatesToHasher(t *testing.T) {
	hasher := mocks.NewMockPasswordHasher(t)
	hasher.On("Hash", "pw").Return("digest", nil).Once()
	hasher.On("Verify", "pw", "digest").Return(true).Once()

	pool := auth.NewHashPool(hasher, 1)

	digest, err := pool.Hash(context.Background(), "pw")
	require.NoError(t, err)
	assert.Equal(t, "digest", digest)

	ok, err := pool.Verify(context.Background(), "pw", "digest")
	require.NoError(t, err)
	assert.True(t, ok)

	hasher.AssertNumberOfCalls(t, "Hash", 1)
	hasher.AssertCalled(t, "Verify", "pw", mock.AnythingOfType("string"))
}
