// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Token defaults.
const (
	DefaultTokenTTL    = 24 * time.Hour
	DefaultTokenIssuer = "accountd"
	MinSecretLength    = 32
)

// Clock returns the current time.
type Clock func() time.Time

// TokenConfig configures a TokenIssuer. It is fixed for the process lifetime.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
}

// TokenErrorKind classifies a rejected token.
type TokenErrorKind int

// Token rejection kinds.
const (
	TokenMalformed TokenErrorKind = iota + 1
	TokenExpired
)

func (k TokenErrorKind) String() string {
	switch k {
	case TokenMalformed:
		return ReasonMalformed
	case TokenExpired:
		return ReasonExpired
	default:
		return "unknown"
	}
}

// TokenError is returned by TokenIssuer.Validate.
type TokenError struct {
	Kind TokenErrorKind
	Err  error
}

func (e *TokenError) Error() string {
	if e.Err == nil {
		return "token " + e.Kind.String()
	}
	return "token " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *TokenError) Unwrap() error { return e.Err }

// TokenIssuer signs and validates HS256 bearer tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    Clock
	parser *jwt.Parser
}

// NewTokenIssuer creates a TokenIssuer. A nil clock uses time.Now.
func NewTokenIssuer(cfg TokenConfig, clock Clock) (*TokenIssuer, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, oops.Code("AUTH_INVALID_TOKEN_CONFIG").
			With("min", MinSecretLength).
			Errorf("token secret must be at least %d bytes", MinSecretLength)
	}
	if cfg.TTL < 0 {
		return nil, oops.Code("AUTH_INVALID_TOKEN_CONFIG").Errorf("token ttl must not be negative")
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTokenTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultTokenIssuer
	}
	if clock == nil {
		clock = time.Now
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	return &TokenIssuer{
		secret: secret,
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		now:    clock,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(clock),
		),
	}, nil
}

// TTL returns the configured token lifetime.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue returns a signed token binding userID, valid for the configured TTL.
func (t *TokenIssuer) Issue(userID ulid.ULID) (string, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    t.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		ID:        ulid.Make().String(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", oops.Code("AUTH_TOKEN_SIGN_FAILED").Wrap(err)
	}
	return signed, nil
}

// Validate checks the signature first and then the claims. It returns the
// bound user ID, or a *TokenError.
func (t *TokenIssuer) Validate(token string) (ulid.ULID, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := t.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ulid.ULID{}, &TokenError{Kind: TokenExpired, Err: err}
		}
		return ulid.ULID{}, &TokenError{Kind: TokenMalformed, Err: err}
	}

	id, err := ulid.ParseStrict(claims.Subject)
	if err != nil {
		return ulid.ULID{}, &TokenError{Kind: TokenMalformed, Err: err}
	}
	return id, nil
}
