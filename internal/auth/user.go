// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
)

// Field limits for registration input.
const (
	MaxNameLength     = 100
	MaxEmailLength    = 254
	MaxPasswordLength = 1024
)

// DefaultMinPasswordLength is used when PasswordPolicy.MinLength is unset.
const DefaultMinPasswordLength = 8

var validate = validator.New(validator.WithRequiredStructEnabled())

// User is a registered account. The password digest never leaves the
// service boundary; transports render a Profile instead.
type User struct {
	ID             ulid.ULID
	Name           string
	Email          string
	PasswordDigest string
	CreatedAt      time.Time
}

// Profile is the public view of a User.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile returns the user without its digest. CreatedAt is in UTC.
func (u *User) Profile() Profile {
	return Profile{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.UTC(),
	}
}

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
// The result is the uniqueness key used by every UserDirectory.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PasswordPolicy holds the strength rules applied at registration.
type PasswordPolicy struct {
	MinLength int
}

func (p PasswordPolicy) minLength() int {
	if p.MinLength <= 0 {
		return DefaultMinPasswordLength
	}
	return p.MinLength
}

// ValidateName checks a display name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errInvalidInput("name", "name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return errInvalidInput("name", "name is too long")
	}
	return nil
}

// ValidateEmail checks an already normalized email address.
func ValidateEmail(email string) error {
	if email == "" {
		return errInvalidInput("email", "email is required")
	}
	if len(email) > MaxEmailLength {
		return errInvalidInput("email", "email is too long")
	}
	if err := validate.Var(email, "email"); err != nil {
		return errInvalidInput("email", "email is not a valid address")
	}
	return nil
}

// ValidatePassword checks a plaintext password against the policy.
func (p PasswordPolicy) ValidatePassword(password string) error {
	if password == "" {
		return errInvalidInput("password", "password is required")
	}
	if utf8.RuneCountInString(password) < p.minLength() {
		return errInvalidInput("password", "password is too short")
	}
	if len(password) > MaxPasswordLength {
		return errInvalidInput("password", "password is too long")
	}
	return nil
}

// UserDirectory stores users keyed by normalized email.
type UserDirectory interface {
	// Insert stores a new user. It returns an error wrapping ErrConflict when
	// another user already holds the email, atomically with respect to
	// concurrent inserts.
	Insert(ctx context.Context, user *User) error

	// FindByEmail returns the user with the given normalized email, or an
	// error wrapping ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByID returns the user with the given ID, or an error wrapping ErrNotFound.
	FindByID(ctx context.Context, id ulid.ULID) (*User, error)

	// Delete removes a user. Administrative only.
	Delete(ctx context.Context, id ulid.ULID) error
}

// Pinger is implemented by directories that can report backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}
