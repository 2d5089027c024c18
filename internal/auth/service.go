// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("accountd/auth")

// Operation names used for spans and metrics.
const (
	OpRegister       = "register"
	OpLogin          = "login"
	OpGetCurrentUser = "get_current_user"
)

// Outcome labels reported to a Recorder.
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidInput       = "invalid_input"
	OutcomeConflict           = "conflict"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeUnauthenticated    = "unauthenticated"
	OutcomeUnavailable        = "unavailable"
)

// Recorder receives authentication telemetry. Implementations must be safe
// for concurrent use.
type Recorder interface {
	// AuthOutcome counts one completed operation.
	AuthOutcome(operation, outcome string)

	// TokenRejected counts a bearer token refused for reason.
	TokenRejected(reason string)

	// HashDuration observes one hash or verify call.
	HashDuration(operation string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) AuthOutcome(string, string) {}
func (nopRecorder) TokenRejected(string) {}
func (nopRecorder) HashDuration(string, time.Duration) {}

// Service orchestrates registration, login and identity resolution.
// It holds no mutable state; a single instance serves all requests.
type Service struct {
	users    UserDirectory
	pool     *HashPool
	tokens   *TokenIssuer
	policy   PasswordPolicy
	recorder Recorder
	logger   *slog.Logger
	now      Clock

	// dummyDigest is verified when a login names an unknown email so the
	// response takes as long as a real mismatch.
	dummyDigest string
}

// ServiceOption configures a Service during construction.
type ServiceOption func(*Service)

// WithLogger sets the service logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the telemetry sink.
func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithPasswordPolicy sets the registration password policy.
func WithPasswordPolicy(p PasswordPolicy) ServiceOption {
	return func(s *Service) {
		s.policy = p
	}
}

// WithClock sets the clock used for user creation timestamps.
func WithClock(c Clock) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.now = c
		}
	}
}

// NewService creates a Service. It computes a dummy digest with the pool's
// hasher, so construction costs one hash.
func NewService(users UserDirectory, pool *HashPool, tokens *TokenIssuer, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("user directory is required")
	}
	if pool == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("hash pool is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("token issuer is required")
	}

	s := &Service{
		users:    users,
		pool:     pool,
		tokens:   tokens,
		recorder: nopRecorder{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	dummy, err := pool.hasher.Hash(ulid.Make().String())
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").
			With("operation", "compute dummy digest").
			Wrap(err)
	}
	s.dummyDigest = dummy

	pool.observe(s.recorder.HashDuration)

	return s, nil
}

// Register creates a user. The email is normalized before validation and
// uniqueness is decided by the directory insert, so concurrent registrations
// of one address yield exactly one success.
func (s *Service) Register(ctx context.Context, name, email, password string) (user *User, err error) {
	ctx, span := tracer.Start(ctx, "auth.register")
	defer s.finish(span, OpRegister, &err)

	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)

	if err = ValidateName(name); err != nil {
		return nil, err
	}
	if err = ValidateEmail(email); err != nil {
		return nil, err
	}
	if err = s.policy.ValidatePassword(password); err != nil {
		return nil, err
	}

	digest, hashErr := s.pool.Hash(ctx, password)
	if hashErr != nil {
		if ErrorCode(hashErr) == CodePasswordTooLong {
			err = errInvalidInput("password", "password is too long")
			return nil, err
		}
		err = errUnavailable("hash password", hashErr)
		return nil, err
	}

	user = &User{
		ID:             ulid.Make(),
		Name:           name,
		Email:          email,
		PasswordDigest: digest,
		CreatedAt:      s.now().UTC(),
	}
	span.SetAttributes(attribute.String("user.id", user.ID.String()))

	if insertErr := s.users.Insert(ctx, user); insertErr != nil {
		if errors.Is(insertErr, ErrConflict) {
			err = oops.Code(CodeEmailConflict).Errorf("email is already registered")
			return nil, err
		}
		err = errUnavailable("insert user", insertErr)
		s.logger.WarnContext(ctx, "register failed", "operation", "insert user", "error", insertErr)
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String())
	return user, nil
}

// Login exchanges credentials for a bearer token. An unknown email and a
// wrong password are indistinguishable to the caller in both result and
// timing.
func (s *Service) Login(ctx context.Context, email, password string) (token string, err error) {
	ctx, span := tracer.Start(ctx, "auth.login")
	defer s.finish(span, OpLogin, &err)

	email = NormalizeEmail(email)

	if email == "" || password == "" {
		if _, verifyErr := s.pool.Verify(ctx, password, s.dummyDigest); verifyErr != nil {
			err = errUnavailable("verify password", verifyErr)
			return "", err
		}
		err = errInvalidCredentials()
		return "", err
	}

	user, lookupErr := s.users.FindByEmail(ctx, email)
	target := s.dummyDigest
	switch {
	case lookupErr == nil:
		target = user.PasswordDigest
	case errors.Is(lookupErr, ErrNotFound):
		user = nil
	default:
		err = errUnavailable("find user by email", lookupErr)
		s.logger.WarnContext(ctx, "login failed", "operation", "find user by email", "error", lookupErr)
		return "", err
	}

	ok, verifyErr := s.pool.Verify(ctx, password, target)
	if verifyErr != nil {
		err = errUnavailable("verify password", verifyErr)
		return "", err
	}
	if user == nil || !ok {
		err = errInvalidCredentials()
		return "", err
	}

	token, err = s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "token signing failed", "user_id", user.ID.String(), "error", err)
		err = errUnavailable("issue token", err)
		return "", err
	}

	span.SetAttributes(attribute.String("user.id", user.ID.String()))
	return token, nil
}

// GetCurrentUser resolves a bearer token to the user it was issued for.
// A valid token whose user no longer exists is treated as revoked.
func (s *Service) GetCurrentUser(ctx context.Context, token string) (user *User, err error) {
	ctx, span := tracer.Start(ctx, "auth.get_current_user")
	defer s.finish(span, OpGetCurrentUser, &err)

	if token == "" {
		err = s.unauthenticated(ReasonMissing, nil)
		return nil, err
	}

	id, validateErr := s.tokens.Validate(token)
	if validateErr != nil {
		reason := ReasonMalformed
		var tokenErr *TokenError
		if errors.As(validateErr, &tokenErr) {
			reason = tokenErr.Kind.String()
		}
		err = s.unauthenticated(reason, validateErr)
		return nil, err
	}

	user, lookupErr := s.users.FindByID(ctx, id)
	if lookupErr != nil {
		if errors.Is(lookupErr, ErrNotFound) {
			err = s.unauthenticated(ReasonRevoked, nil)
			return nil, err
		}
		err = errUnavailable("find user by id", lookupErr)
		s.logger.WarnContext(ctx, "identity lookup failed", "user_id", id.String(), "error", lookupErr)
		return nil, err
	}

	span.SetAttributes(attribute.String("user.id", user.ID.String()))
	return user, nil
}

func (s *Service) unauthenticated(reason string, cause error) error {
	s.recorder.TokenRejected(reason)
	return errUnauthenticated(reason, cause)
}

func (s *Service) finish(span trace.Span, op string, errp *error) {
	err := *errp
	outcome := outcomeOf(err)
	s.recorder.AuthOutcome(op, outcome)
	span.SetAttributes(attribute.String("auth.outcome", outcome))
	if outcome == OutcomeUnavailable {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func outcomeOf(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	switch ErrorCode(err) {
	case CodeInvalidInput:
		return OutcomeInvalidInput
	case CodeEmailConflict:
		return OutcomeConflict
	case CodeInvalidCredentials:
		return OutcomeInvalidCredentials
	case CodeUnauthenticated:
		return OutcomeUnauthenticated
	default:
		return OutcomeUnavailable
	}
}
