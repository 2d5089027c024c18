// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory provides an in-process UserDirectory for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/accountd/internal/auth"
)

// Directory is a mutex-guarded UserDirectory. Data is lost on restart.
type Directory struct {
	mu      sync.RWMutex
	byID    map[ulid.ULID]*auth.User
	byEmail map[string]ulid.ULID
}

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	return &Directory{
		byID:    make(map[ulid.ULID]*auth.User),
		byEmail: make(map[string]ulid.ULID),
	}
}

// Insert stores a copy of user. The email check and insert happen under
// one lock.
func (d *Directory) Insert(_ context.Context, user *auth.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, taken := d.byEmail[user.Email]; taken {
		return oops.Code("USER_EMAIL_TAKEN").With("email", user.Email).Wrap(auth.ErrConflict)
	}
	if _, taken := d.byID[user.ID]; taken {
		return oops.Code("USER_ID_TAKEN").With("id", user.ID.String()).Wrap(auth.ErrConflict)
	}

	stored := *user
	d.byID[user.ID] = &stored
	d.byEmail[user.Email] = user.ID
	return nil
}

// FindByEmail returns a copy of the user holding email.
func (d *Directory) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byEmail[email]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	found := *d.byID[id]
	return &found, nil
}

// FindByID returns a copy of the user with id.
func (d *Directory) FindByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.byID[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	found := *u
	return &found, nil
}

// Delete removes the user with id.
func (d *Directory) Delete(_ context.Context, id ulid.ULID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.byID[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	delete(d.byEmail, u.Email)
	delete(d.byID, id)
	return nil
}

// Ping always succeeds.
func (d *Directory) Ping(context.Context) error {
	return nil
}

// Len returns the number of stored users.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}

var (
	_ auth.UserDirectory = (*Directory)(nil)
	_ auth.Pinger        = (*Directory)(nil)
)
