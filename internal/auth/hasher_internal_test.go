// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeArgon2id(t *testing.T) {
	t.Run("round trips own output", func(t *testing.T) {
		h, err := NewArgon2idHasherWithParams(HasherParams{Time: 2, MemoryKiB: 64, Threads: 1})
		require.NoError(t, err)
		digest, err := h.Hash("password")
		require.NoError(t, err)

		d, err := decodeArgon2id(digest)
		require.NoError(t, err)
		assert.Equal(t, HasherParams{Time: 2, MemoryKiB: 64, Threads: 1}, d.params)
		assert.Len(t, d.salt, argon2SaltLen)
		assert.Len(t, d.key, argon2KeyLen)
	})

	tests := []struct {
		name    string
		digest  string
		wantMsg string
	}{
		{"wrong algorithm", "$argon2i$v=19$m=65536,t=1,p=4$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA", "unsupported hash algorithm"},
		{"old version", "$argon2id$v=16$m=65536,t=1,p=4$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA", "unsupported argon2 version"},
		{"threads overflow", "$argon2id$v=19$m=65536,t=1,p=256$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA", "threads value"},
		{"time cap", "$argon2id$v=19$m=65536,t=1000,p=4$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA", "time value"},
		{"memory cap", "$argon2id$v=19$m=4294967295,t=1,p=4$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA", "memory value"},
		{"short salt", "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaGhhc2hoYXNoaGFzaA", "invalid salt length"},
		{"short key", "$argon2id$v=19$m=65536,t=1,p=4$c2FsdHNhbHRzYWx0$aGFzaA", "invalid hash key length"},
		{"missing leading separator", "argon2id$v=19$m=65536,t=1,p=4$c2FsdHNhbHRzYWx0$aGFzaA$x", "invalid hash format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeArgon2id(tt.digest)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
