// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holomush/accountd/internal/auth"
	"github.com/holomush/accountd/internal/auth/postgres"
	"github.com/holomush/accountd/internal/store"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("accountd"),
		tcpostgres.WithUsername("accountd"),
		tcpostgres.WithPassword("accountd"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres: %v\n", err)
		return 1
	}
	defer func() { _ = container.Terminate(ctx) }() //nolint:errcheck // best effort teardown

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "connection string: %v\n", err)
		return 1
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrator: %v\n", err)
		return 1
	}
	if err := migrator.Up(); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		return 1
	}
	_ = migrator.Close() //nolint:errcheck // schema is applied

	testPool, err = store.Open(ctx, store.PoolConfig{URL: connStr}, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open pool: %v\n", err)
		return 1
	}
	defer testPool.Close()

	return m.Run()
}

func newUser(email string) *auth.User {
	return &auth.User{
		ID:             ulid.Make(),
		Name:           "Integration User",
		Email:          email,
		PasswordDigest: "digest",
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
}

func cleanupUser(t *testing.T, id ulid.ULID) {
	t.Helper()
	t.Cleanup(func() {
		_, _ = testPool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, id.String()) //nolint:errcheck // test cleanup
	})
}

func TestUserRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewUserRepository(testPool)
	user := newUser("roundtrip@example.com")

	require.NoError(t, repo.Insert(ctx, user))
	cleanupUser(t, user.ID)

	byEmail, err := repo.FindByEmail(ctx, user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.True(t, user.CreatedAt.Equal(byEmail.CreatedAt))

	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.PasswordDigest, byID.PasswordDigest)

	require.NoError(t, repo.Ping(ctx))
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewUserRepository(testPool)

	first := newUser("dup@example.com")
	require.NoError(t, repo.Insert(ctx, first))
	cleanupUser(t, first.ID)

	second := newUser("dup@example.com")
	err := repo.Insert(ctx, second)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrConflict)
}

func TestUserRepository_RejectsUnnormalizedEmail(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewUserRepository(testPool)

	err := repo.Insert(ctx, newUser(" Mixed@Example.com"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrConflict)
}

func TestUserRepository_ConcurrentInsertSingleWinner(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewUserRepository(testPool)

	const n = 10
	var wg sync.WaitGroup
	results := make([]error, n)
	users := make([]*auth.User, n)
	for i := range n {
		users[i] = newUser("race@example.com")
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = repo.Insert(ctx, users[i])
		}()
	}
	wg.Wait()

	wins := 0
	for i, err := range results {
		if err == nil {
			wins++
			cleanupUser(t, users[i].ID)
			continue
		}
		assert.ErrorIs(t, err, auth.ErrConflict)
	}
	assert.Equal(t, 1, wins)
}

func TestUserRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewUserRepository(testPool)
	user := newUser("delete@example.com")
	require.NoError(t, repo.Insert(ctx, user))

	require.NoError(t, repo.Delete(ctx, user.ID))

	_, err := repo.FindByID(ctx, user.ID)
	assert.ErrorIs(t, err, auth.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, user.ID), auth.ErrNotFound)
}
