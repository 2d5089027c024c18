// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/accountd/internal/auth"
	"github.com/holomush/accountd/pkg/errutil"
)

// fastParams keeps argon2id cheap enough for unit tests.
var fastParams = auth.HasherParams{Time: 1, MemoryKiB: 64, Threads: 1}

func newFastHasher(t *testing.T) *auth.Argon2idHasher {
	t.Helper()
	h, err := auth.NewArgon2idHasherWithParams(fastParams)
	require.NoError(t, err)
	return h
}

func TestHashPassword(t *testing.T) {
	hasher := newFastHasher(t)

	t.Run("produces valid hash", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=64,t=1,p=1$"))
	})

	t.Run("different passwords produce different hashes", func(t *testing.T) {
		hash1, err := hasher.Hash("password1")
		require.NoError(t, err)
		hash2, err := hasher.Hash("password2")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("same password produces different hashes (salt)", func(t *testing.T) {
		hash1, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		hash2, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("digest does not contain plaintext", func(t *testing.T) {
		hash, err := hasher.Hash("plaintext-secret")
		require.NoError(t, err)
		assert.NotContains(t, hash, "plaintext-secret")
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeEmptyPassword)
	})
}

func TestVerifyPassword(t *testing.T) {
	hasher := newFastHasher(t)

	t.Run("correct password verifies", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)
		assert.True(t, hasher.Verify("correctpassword", hash))
	})

	t.Run("incorrect password fails", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)
		assert.False(t, hasher.Verify("wrongpassword", hash))
	})

	t.Run("digest from another parameter set still verifies", func(t *testing.T) {
		other, err := auth.NewArgon2idHasherWithParams(auth.HasherParams{Time: 2, MemoryKiB: 128, Threads: 2})
		require.NoError(t, err)
		hash, err := other.Hash("portable")
		require.NoError(t, err)
		assert.True(t, hasher.Verify("portable", hash))
	})

	malformed := map[string]string{
		"empty":            "",
		"garbage":          "not-a-valid-hash",
		"wrong algorithm":  "$argon2i$v=19$m=65536,t=1,p=4$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA",
		"bad version":      "$argon2id$vXX$m=65536,t=1,p=4$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA",
		"bad params":       "$argon2id$v=19$invalid$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA",
		"bad salt base64":  "$argon2id$v=19$m=65536,t=1,p=4$!!!invalid!!!$aGFzaGhhc2hoYXNoaGFzaA",
		"bad hash base64":  "$argon2id$v=19$m=65536,t=1,p=4$c2FsdHNhbHRzYWx0$!!!invalid!!!",
		"threads overflow": "$argon2id$v=19$m=65536,t=1,p=256$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA",
		"huge memory":      "$argon2id$v=19$m=4294967295,t=1,p=4$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA",
		"bcrypt digest":    "$2a$10$N9qo8uLOickgx2ZMRZoMyeIvNq.Uf3hE9tQALNP1Qn9sNp5x5x5x5",
	}
	for name, digest := range malformed {
		t.Run("malformed digest never matches: "+name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.False(t, hasher.Verify("password", digest))
			})
		})
	}
}

func TestNewArgon2idHasherWithParams(t *testing.T) {
	tests := []struct {
		name    string
		params  auth.HasherParams
		wantErr bool
	}{
		{"defaults", auth.DefaultHasherParams(), false},
		{"zero time", auth.HasherParams{Time: 0, MemoryKiB: 64, Threads: 1}, true},
		{"zero threads", auth.HasherParams{Time: 1, MemoryKiB: 64, Threads: 0}, true},
		{"memory below threads floor", auth.HasherParams{Time: 1, MemoryKiB: 16, Threads: 4}, true},
		{"memory above cap", auth.HasherParams{Time: 1, MemoryKiB: 2 * 1024 * 1024, Threads: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.NewArgon2idHasherWithParams(tt.params)
			if tt.wantErr {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASHER_PARAMS")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestBcryptHasher(t *testing.T) {
	hasher, err := auth.NewBcryptHasher(4)
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$2a$04$"))
		assert.True(t, hasher.Verify("correctpassword", hash))
		assert.False(t, hasher.Verify("wrongpassword", hash))
	})

	t.Run("rejects input bcrypt would truncate", func(t *testing.T) {
		_, err := hasher.Hash(strings.Repeat("a", 73))
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodePasswordTooLong)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		errutil.AssertErrorCode(t, err, auth.CodeEmptyPassword)
	})

	t.Run("argon2id digest never matches", func(t *testing.T) {
		digest, err := newFastHasher(t).Hash("password")
		require.NoError(t, err)
		assert.False(t, hasher.Verify("password", digest))
	})

	t.Run("invalid cost", func(t *testing.T) {
		_, err := auth.NewBcryptHasher(64)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASHER_PARAMS")
	})
}
