// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/accountd/internal/auth"
	"github.com/holomush/accountd/internal/auth/memory"
	"github.com/holomush/accountd/internal/auth/postgres"
	"github.com/holomush/accountd/internal/config"
	"github.com/holomush/accountd/internal/httpapi"
	"github.com/holomush/accountd/internal/store"
	"github.com/holomush/accountd/pkg/errutil"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	migrate bool
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return newServeCmdWithDeps(nil)
}

func newServeCmdWithDeps(deps *ServeDeps) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the account API and, unless metrics.addr is empty, the
metrics and health endpoints. Requires ACCOUNTD_TOKEN_SECRET, and
DATABASE_URL when store.driver is postgres.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, opts, deps)
		},
	}

	cmd.Flags().BoolVar(&opts.migrate, "migrate", false, "apply pending migrations before serving (postgres only)")

	return cmd
}

// runServeWithDeps starts the API with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, opts *serveOptions, deps *ServeDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if deps == nil {
		deps = &ServeDeps{}
	} else {
		copied := *deps
		deps = &copied
	}
	if deps.DirectoryFactory == nil {
		deps.DirectoryFactory = openDirectory
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = newStoreMigrator
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = newObservabilityServer
	}
	if deps.Listen == nil {
		deps.Listen = net.Listen
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	logger, err := setupLogging(cmd, cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if opts.migrate && cfg.Store.Driver == config.DriverPostgres {
		if err := migrateUp(deps.MigratorFactory, cfg.DatabaseURL, logger); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dir, closeDir, err := deps.DirectoryFactory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDir()

	hasher, err := newHasher(cfg.Password)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret: []byte(cfg.TokenSecret),
		TTL:    cfg.Token.TTL,
		Issuer: cfg.Token.Issuer,
	}, nil)
	if err != nil {
		return err
	}

	var (
		obsServer  ObservabilityServer
		recorder   auth.Recorder
		observer   httpapi.RequestObserver
		obsErrChan <-chan error
	)
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, dir.Ping)
		metrics := obsServer.Metrics()
		recorder, observer = metrics, metrics
	}

	pool := auth.NewHashPool(hasher, cfg.Password.MaxConcurrent)
	svc, err := auth.NewService(dir, pool, tokens,
		auth.WithLogger(logger),
		auth.WithRecorder(recorder),
		auth.WithPasswordPolicy(auth.PasswordPolicy{MinLength: cfg.Password.MinLength}),
	)
	if err != nil {
		return err
	}

	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		RPS:   cfg.RateLimit.RPS,
		Burst: cfg.RateLimit.Burst,
	}, observer, logger)
	defer limiter.Stop()

	router := httpapi.NewRouter(httpapi.RouterDeps{
		Service:               svc,
		Logger:                logger,
		Observer:              observer,
		RateLimiter:           limiter,
		RequestTimeout:        cfg.HTTP.RequestTimeout,
		TrustForwardedHeaders: cfg.HTTP.TrustForwardedHeaders,
	})

	if obsServer != nil {
		obsErrChan, err = obsServer.Start()
		if err != nil {
			return oops.Code("SERVE_FAILED").With("operation", "start observability server").Wrap(err)
		}
		defer stopObservability(obsServer, logger)
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability", logger)
	}

	listener, err := deps.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return oops.Code("SERVE_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}

	httpServer := httpapi.NewServer(cfg.HTTP.Addr, router, cfg.HTTP.RequestTimeout)
	serveErr := make(chan error, 1)
	go func() {
		defer close(serveErr)
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	logger.Info("accountd ready",
		"http_addr", listener.Addr().String(),
		"store", cfg.Store.Driver,
		"password_algorithm", cfg.Password.Algorithm,
		"hash_slots", pool.Size(),
	)
	if deps.OnReady != nil {
		deps.OnReady(listener.Addr().String())
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down", "reason", context.Cause(ctx))
	case err, ok := <-serveErr:
		if ok {
			runErr = oops.Code("SERVE_FAILED").With("operation", "serve http").Wrap(err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error shutting down http server", "error", err)
	}

	logger.Info("shutdown complete")
	return runErr
}

// openDirectory is the default DirectoryFactory.
func openDirectory(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Directory, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory user store; accounts are lost on restart")
		return memory.NewDirectory(), func() {}, nil
	case config.DriverPostgres:
		pool, err := store.Open(ctx, store.PoolConfig{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.Store.MaxConns,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewUserRepository(pool), pool.Close, nil
	default:
		return nil, nil, oops.Code("CONFIG_INVALID").With("driver", cfg.Store.Driver).Errorf("unknown store driver")
	}
}

// newHasher builds the PasswordHasher selected by p.algorithm.
func newHasher(p config.Password) (auth.PasswordHasher, error) {
	switch p.Algorithm {
	case config.AlgorithmBcrypt:
		return auth.NewBcryptHasher(p.BcryptCost)
	case config.AlgorithmArgon2id:
		return auth.NewArgon2idHasherWithParams(p.HasherParams())
	default:
		return nil, oops.Code("CONFIG_INVALID").With("algorithm", p.Algorithm).Errorf("unknown password algorithm")
	}
}

func migrateUp(factory func(string) (Migrator, error), databaseURL string, logger *slog.Logger) error {
	m, err := factory(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			errutil.LogError(logger, "failed to close migrator", closeErr)
		}
	}()

	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	status, err := m.Status()
	if err != nil {
		return err
	}
	logger.Info("schema up to date", "version", status.Version)
	return nil
}

func stopObservability(obs ObservabilityServer, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := obs.Stop(ctx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports a failure. It
// exits when an error is received, the channel closes, or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown", "server", serverName, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
