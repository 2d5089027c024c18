// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// Directory sentinels. Implementations wrap these so callers can match with errors.Is.
var (
	// ErrNotFound is returned when a requested user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned by Insert when the normalized email is already taken.
	ErrConflict = errors.New("conflict")
)

// Error codes returned by Service. These are the only codes a transport
// should translate into responses; anything else in the oops context is
// diagnostic detail for logs.
const (
	CodeInvalidInput       = "AUTH_INVALID_INPUT"
	CodeEmailConflict      = "AUTH_EMAIL_CONFLICT"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeUnauthenticated    = "AUTH_UNAUTHENTICATED"
	CodeUnavailable        = "AUTH_UNAVAILABLE"
)

// Unauthenticated reasons, recorded in the "reason" context key.
const (
	ReasonMissing   = "missing"
	ReasonMalformed = "malformed"
	ReasonExpired   = "expired"
	ReasonRevoked   = "revoked"
)

// ErrorCode returns the oops code attached to err, or "" when err carries none.
func ErrorCode(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, ok := oopsErr.Code().(string)
	if !ok {
		return ""
	}
	return code
}

// ErrorReason returns the diagnostic reason recorded on an AUTH_UNAUTHENTICATED error.
func ErrorReason(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	reason, _ := oopsErr.Context()["reason"].(string)
	return reason
}

func errInvalidInput(field, msg string) error {
	return oops.Code(CodeInvalidInput).With("field", field).Errorf("%s", msg)
}

func errInvalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf("invalid email or password")
}

func errUnauthenticated(reason string, cause error) error {
	b := oops.Code(CodeUnauthenticated).With("reason", reason)
	if cause != nil {
		return b.Wrapf(cause, "unauthenticated")
	}
	return b.Errorf("unauthenticated")
}

// errUnavailable records cause as text. oops reports the innermost code of a
// wrapped chain, so wrapping a coded cause would leak it as the public code.
func errUnavailable(operation string, cause error) error {
	return oops.Code(CodeUnavailable).
		With("operation", operation).
		With("cause", cause.Error()).
		Errorf("service unavailable")
}
