// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// Identity is the authenticated caller attached to a request context.
type Identity struct {
	UserID ulid.ULID
}

type ctxKey int

const (
	identityKey ctxKey = iota
	userKey
)

// WithIdentity returns a child context carrying the identity and user.
func WithIdentity(ctx context.Context, user *User) context.Context {
	ctx = context.WithValue(ctx, identityKey, Identity{UserID: user.ID})
	return context.WithValue(ctx, userKey, user)
}

// IdentityFromContext returns the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// UserFromContext returns the user stored by WithIdentity.
func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userKey).(*User)
	return u, ok && u != nil
}
