// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package mocks provides testify mocks for the auth interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/holomush/accountd/internal/auth"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockUserDirectory is a mock auth.UserDirectory.
type MockUserDirectory struct {
	mock.Mock
}

// NewMockUserDirectory creates a MockUserDirectory whose expectations are
// asserted when the test ends.
func NewMockUserDirectory(t testingT) *MockUserDirectory {
	m := &MockUserDirectory{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Insert provides a mock function.
func (_m *MockUserDirectory) Insert(ctx context.Context, user *auth.User) error {
	ret := _m.Called(ctx, user)
	if fn, ok := ret.Get(0).(func(context.Context, *auth.User) error); ok {
		return fn(ctx, user)
	}
	return ret.Error(0)
}

// FindByEmail provides a mock function.
func (_m *MockUserDirectory) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	ret := _m.Called(ctx, email)
	var u *auth.User
	if v := ret.Get(0); v != nil {
		u = v.(*auth.User) //nolint:forcetypeassert // mock return type is fixed by the caller
	}
	return u, ret.Error(1)
}

// FindByID provides a mock function.
func (_m *MockUserDirectory) FindByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	ret := _m.Called(ctx, id)
	var u *auth.User
	if v := ret.Get(0); v != nil {
		u = v.(*auth.User) //nolint:forcetypeassert // mock return type is fixed by the caller
	}
	return u, ret.Error(1)
}

// Delete provides a mock function.
func (_m *MockUserDirectory) Delete(ctx context.Context, id ulid.ULID) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

// MockPasswordHasher is a mock auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a MockPasswordHasher whose expectations are
// asserted when the test ends.
func NewMockPasswordHasher(t testingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Hash provides a mock function.
func (_m *MockPasswordHasher) Hash(password string) (string, error) {
	ret := _m.Called(password)
	return ret.String(0), ret.Error(1)
}

// Verify provides a mock function.
func (_m *MockPasswordHasher) Verify(password, digest string) bool {
	ret := _m.Called(password, digest)
	return ret.Bool(0)
}

// MockRecorder is a mock auth.Recorder.
type MockRecorder struct {
	mock.Mock
}

// NewMockRecorder creates a MockRecorder whose expectations are asserted
// when the test ends.
func NewMockRecorder(t testingT) *MockRecorder {
	m := &MockRecorder{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// AuthOutcome provides a mock function.
func (_m *MockRecorder) AuthOutcome(operation, outcome string) {
	_m.Called(operation, outcome)
}

// TokenRejected provides a mock function.
func (_m *MockRecorder) TokenRejected(reason string) {
	_m.Called(reason)
}

// HashDuration provides a mock function.
func (_m *MockRecorder) HashDuration(operation string, d time.Duration) {
	_m.Called(operation, d)
}

var (
	_ auth.UserDirectory  = (*MockUserDirectory)(nil)
	_ auth.PasswordHasher = (*MockPasswordHasher)(nil)
	_ auth.Recorder       = (*MockRecorder)(nil)
)
