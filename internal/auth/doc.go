// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides the account authentication core.
//
// # Domain Types
//
//   - User - a registered account keyed by normalized email
//   - Identity - the authenticated caller attached to a request context
//   - TokenError - why a bearer token was refused
//
// # Components
//
//   - PasswordHasher - Argon2idHasher (default) or BcryptHasher
//   - HashPool - bounds concurrent hashing
//   - TokenIssuer - HS256 bearer tokens binding a user ID
//   - UserDirectory - storage contract; see the memory and postgres subpackages
//   - Service - Register, Login and GetCurrentUser
//
// Service errors carry one of the Code* constants. Diagnostic detail such
// as the reason a token was refused lives in the oops context and must not
// reach a client.
package auth
