// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads accountd settings from defaults, an optional YAML
// file, command-line flags and the environment, in increasing precedence.
// Secrets are read from the environment only.
package config

import (
	"time"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"

	"github.com/holomush/accountd/internal/auth"
)

// Environment variables holding secrets.
const (
	EnvTokenSecret = "ACCOUNTD_TOKEN_SECRET"
	EnvDatabaseURL = "DATABASE_URL"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Password algorithms.
const (
	AlgorithmArgon2id = "argon2id"
	AlgorithmBcrypt   = "bcrypt"
)

// Defaults.
const (
	DefaultHTTPAddr       = "127.0.0.1:8080"
	DefaultRequestTimeout = 10 * time.Second
	DefaultMetricsAddr    = "127.0.0.1:9100"
	DefaultLogFormat      = "json"
	DefaultLogLevel       = "info"
	DefaultStoreDriver    = DriverPostgres
	DefaultMaxConns       = 10
	DefaultAlgorithm      = AlgorithmArgon2id
	DefaultRateLimitRPS   = 5
	DefaultRateLimitBurst = 20
)

// Config is the full process configuration. It is read once at startup.
type Config struct {
	HTTP      HTTP      `koanf:"http" json:"http,omitempty"`
	Metrics   Metrics   `koanf:"metrics" json:"metrics,omitempty"`
	Log       Log       `koanf:"log" json:"log,omitempty"`
	Store     Store     `koanf:"store" json:"store,omitempty"`
	Token     Token     `koanf:"token" json:"token,omitempty"`
	Password  Password  `koanf:"password" json:"password,omitempty"`
	RateLimit RateLimit `koanf:"ratelimit" json:"ratelimit,omitempty"`

	// TokenSecret comes from ACCOUNTD_TOKEN_SECRET.
	TokenSecret string `koanf:"-" json:"-"`
	// DatabaseURL comes from DATABASE_URL.
	DatabaseURL string `koanf:"-" json:"-"`
}

// HTTP configures the API listener.
type HTTP struct {
	Addr           string        `koanf:"addr" json:"addr,omitempty" jsonschema:"description=API listen address (host:port)"`
	RequestTimeout time.Duration `koanf:"request_timeout" json:"request_timeout,omitempty" jsonschema:"type=string,description=Per-request deadline such as 10s"`
	// TrustForwardedHeaders takes the client address from X-Forwarded-For or
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustForwardedHeaders bool `koanf:"trust_forwarded_headers" json:"trust_forwarded_headers,omitempty" jsonschema:"description=Derive the client IP from X-Forwarded-For/X-Real-IP (only behind a trusted proxy)"`
}

// Metrics configures the observability listener.
type Metrics struct {
	Addr string `koanf:"addr" json:"addr,omitempty" jsonschema:"description=Metrics and health listen address; empty disables"`
}

// Log configures logging.
type Log struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// Store selects the user directory backend.
type Store struct {
	Driver   string `koanf:"driver" json:"driver,omitempty" jsonschema:"enum=postgres,enum=memory"`
	MaxConns int32  `koanf:"max_conns" json:"max_conns,omitempty" jsonschema:"minimum=1"`
}

// Token configures bearer token issuance.
type Token struct {
	TTL    time.Duration `koanf:"ttl" json:"ttl,omitempty" jsonschema:"type=string,description=Token lifetime such as 24h"`
	Issuer string        `koanf:"issuer" json:"issuer,omitempty"`
}

// Password configures hashing and the registration policy.
type Password struct {
	Algorithm       string `koanf:"algorithm" json:"algorithm,omitempty" jsonschema:"enum=argon2id,enum=bcrypt"`
	MinLength       int    `koanf:"min_length" json:"min_length,omitempty" jsonschema:"minimum=1,maximum=1024"`
	Argon2Time      uint32 `koanf:"argon2_time" json:"argon2_time,omitempty" jsonschema:"minimum=1"`
	Argon2MemoryKiB uint32 `koanf:"argon2_memory_kib" json:"argon2_memory_kib,omitempty" jsonschema:"minimum=8"`
	Argon2Threads   uint8  `koanf:"argon2_threads" json:"argon2_threads,omitempty" jsonschema:"minimum=1"`
	BcryptCost      int    `koanf:"bcrypt_cost" json:"bcrypt_cost,omitempty" jsonschema:"minimum=4,maximum=31"`
	MaxConcurrent   int    `koanf:"max_concurrent" json:"max_concurrent,omitempty" jsonschema:"minimum=0"`
}

// RateLimit configures the per-client API limiter.
type RateLimit struct {
	RPS   float64 `koanf:"rps" json:"rps,omitempty" jsonschema:"minimum=0"`
	Burst int     `koanf:"burst" json:"burst,omitempty" jsonschema:"minimum=1"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTP:    HTTP{Addr: DefaultHTTPAddr, RequestTimeout: DefaultRequestTimeout},
		Metrics: Metrics{Addr: DefaultMetricsAddr},
		Log:     Log{Format: DefaultLogFormat, Level: DefaultLogLevel},
		Store:   Store{Driver: DefaultStoreDriver, MaxConns: DefaultMaxConns},
		Token:   Token{TTL: auth.DefaultTokenTTL, Issuer: auth.DefaultTokenIssuer},
		Password: Password{
			Algorithm:       DefaultAlgorithm,
			MinLength:       auth.DefaultMinPasswordLength,
			Argon2Time:      auth.DefaultArgon2Time,
			Argon2MemoryKiB: auth.DefaultArgon2MemoryKiB,
			Argon2Threads:   auth.DefaultArgon2Threads,
			BcryptCost:      auth.DefaultBcryptCost,
		},
		RateLimit: RateLimit{RPS: DefaultRateLimitRPS, Burst: DefaultRateLimitBurst},
	}
}

// HasherParams returns the argon2id parameters.
func (p Password) HasherParams() auth.HasherParams {
	return auth.HasherParams{
		Time:      p.Argon2Time,
		MemoryKiB: p.Argon2MemoryKiB,
		Threads:   p.Argon2Threads,
	}
}

// Validate checks every non-secret setting.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return invalid("http.addr", "must not be empty")
	}
	if c.HTTP.RequestTimeout <= 0 {
		return invalid("http.request_timeout", "must be positive")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return invalid("log.format", "must be json or text")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level", "must be debug, info, warn or error")
	}
	switch c.Store.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return invalid("store.driver", "must be postgres or memory")
	}
	if c.Store.MaxConns < 1 {
		return invalid("store.max_conns", "must be at least 1")
	}
	if c.Token.TTL <= 0 {
		return invalid("token.ttl", "must be positive")
	}
	if c.Token.Issuer == "" {
		return invalid("token.issuer", "must not be empty")
	}
	if err := c.Password.validate(); err != nil {
		return err
	}
	if c.RateLimit.RPS < 0 {
		return invalid("ratelimit.rps", "must not be negative")
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		return invalid("ratelimit.burst", "must be at least 1 when rate limiting is enabled")
	}
	return nil
}

// ValidateServe checks Validate plus the secrets needed to serve requests.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.TokenSecret) < auth.MinSecretLength {
		return oops.Code("CONFIG_INVALID").
			With("env", EnvTokenSecret).
			Errorf("%s must be at least %d bytes", EnvTokenSecret, auth.MinSecretLength)
	}
	if c.Store.Driver == DriverPostgres {
		return c.RequireDatabaseURL()
	}
	return nil
}

// RequireDatabaseURL reports an error when DATABASE_URL is unset.
func (c *Config) RequireDatabaseURL() error {
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").
			With("env", EnvDatabaseURL).
			Errorf("%s environment variable is required", EnvDatabaseURL)
	}
	return nil
}

func (p Password) validate() error {
	switch p.Algorithm {
	case AlgorithmArgon2id:
		if err := p.HasherParams().Validate(); err != nil {
			return invalid("password.argon2", err.Error())
		}
	case AlgorithmBcrypt:
		if p.BcryptCost < bcrypt.MinCost || p.BcryptCost > bcrypt.MaxCost {
			return invalid("password.bcrypt_cost", "must be between 4 and 31")
		}
	default:
		return invalid("password.algorithm", "must be argon2id or bcrypt")
	}
	if p.MinLength < 1 || p.MinLength > auth.MaxPasswordLength {
		return invalid("password.min_length", "must be between 1 and 1024")
	}
	if p.MaxConcurrent < 0 {
		return invalid("password.max_concurrent", "must not be negative")
	}
	return nil
}

func invalid(key, msg string) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf("%s %s", key, msg)
}
