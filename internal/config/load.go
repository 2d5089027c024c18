// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// flagKeys maps flag names to config keys. Flags not listed here are
// not configuration (for example --config itself).
var flagKeys = map[string]string{
	"http-addr":               "http.addr",
	"request-timeout":         "http.request_timeout",
	"trust-forwarded-headers": "http.trust_forwarded_headers",
	"metrics-addr":            "metrics.addr",
	"log-format":              "log.format",
	"log-level":               "log.level",
	"store":                   "store.driver",
	"db-max-conns":            "store.max_conns",
	"token-ttl":               "token.ttl",
	"token-issuer":            "token.issuer",
	"password-algorithm":      "password.algorithm",
	"password-min-length":     "password.min_length",
	"password-argon2-time":    "password.argon2_time",
	"password-argon2-memory":  "password.argon2_memory_kib",
	"password-argon2-threads": "password.argon2_threads",
	"password-bcrypt-cost":    "password.bcrypt_cost",
	"password-max-concurrent": "password.max_concurrent",
	"ratelimit-rps":           "ratelimit.rps",
	"ratelimit-burst":         "ratelimit.burst",
}

// RegisterFlags defines every configuration flag on fs with its default.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()

	fs.String("http-addr", d.HTTP.Addr, "API listen address")
	fs.Duration("request-timeout", d.HTTP.RequestTimeout, "per-request deadline")
	fs.Bool("trust-forwarded-headers", d.HTTP.TrustForwardedHeaders, "take the client IP from X-Forwarded-For/X-Real-IP (trusted proxy only)")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("store", d.Store.Driver, "user store driver (postgres or memory)")
	fs.Int32("db-max-conns", d.Store.MaxConns, "maximum postgres pool connections")
	fs.Duration("token-ttl", d.Token.TTL, "bearer token lifetime")
	fs.String("token-issuer", d.Token.Issuer, "bearer token issuer claim")
	fs.String("password-algorithm", d.Password.Algorithm, "password hash algorithm (argon2id or bcrypt)")
	fs.Int("password-min-length", d.Password.MinLength, "minimum password length in characters")
	fs.Uint32("password-argon2-time", d.Password.Argon2Time, "argon2id iterations")
	fs.Uint32("password-argon2-memory", d.Password.Argon2MemoryKiB, "argon2id memory in KiB")
	fs.Uint8("password-argon2-threads", d.Password.Argon2Threads, "argon2id parallelism")
	fs.Int("password-bcrypt-cost", d.Password.BcryptCost, "bcrypt cost")
	fs.Int("password-max-concurrent", d.Password.MaxConcurrent, "concurrent hash limit (0 = GOMAXPROCS)")
	fs.Float64("ratelimit-rps", d.RateLimit.RPS, "per-client requests per second (0 = disabled)")
	fs.Int("ratelimit-burst", d.RateLimit.Burst, "per-client burst size")
}

// Options controls Load.
type Options struct {
	// Flags holds flags defined by RegisterFlags. Unchanged flags supply
	// defaults; changed flags override the file.
	Flags *pflag.FlagSet
	// File is the YAML config path. Empty means no file.
	File string
	// Getenv reads secrets. Defaults to os.Getenv.
	Getenv func(string) string
}

// Load assembles a Config. The file, when given, must exist and pass
// schema validation. The result is not validated; call Validate.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", opts.File).Wrap(err)
		}
		if err := ValidateSchema(data); err != nil {
			return nil, oops.Code("CONFIG_SCHEMA_INVALID").
				With("path", opts.File).
				Errorf("%s: %s", opts.File, FormatSchemaError(err))
		}
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_PARSE_FAILED").With("path", opts.File).Wrap(err)
		}
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}

	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg.TokenSecret = getenv(EnvTokenSecret)
	cfg.DatabaseURL = getenv(EnvDatabaseURL)

	return cfg, nil
}

// Redacted is printed in place of a set secret.
const Redacted = "[REDACTED]"

// Effective returns the configuration as a nested map suitable for
// printing. Durations are rendered as strings and secrets are redacted.
func (c *Config) Effective() map[string]any {
	return map[string]any{
		"http": map[string]any{
			"addr":                    c.HTTP.Addr,
			"request_timeout":         c.HTTP.RequestTimeout.String(),
			"trust_forwarded_headers": c.HTTP.TrustForwardedHeaders,
		},
		"metrics": map[string]any{"addr": c.Metrics.Addr},
		"log":     map[string]any{"format": c.Log.Format, "level": c.Log.Level},
		"store":   map[string]any{"driver": c.Store.Driver, "max_conns": c.Store.MaxConns},
		"token": map[string]any{
			"ttl":    c.Token.TTL.String(),
			"issuer": c.Token.Issuer,
		},
		"password": map[string]any{
			"algorithm":         c.Password.Algorithm,
			"min_length":        c.Password.MinLength,
			"argon2_time":       c.Password.Argon2Time,
			"argon2_memory_kib": c.Password.Argon2MemoryKiB,
			"argon2_threads":    c.Password.Argon2Threads,
			"bcrypt_cost":       c.Password.BcryptCost,
			"max_concurrent":    c.Password.MaxConcurrent,
		},
		"ratelimit": map[string]any{"rps": c.RateLimit.RPS, "burst": c.RateLimit.Burst},
		"env": map[string]any{
			EnvTokenSecret: redact(c.TokenSecret),
			EnvDatabaseURL: redact(c.DatabaseURL),
		},
	}
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return Redacted
}
