// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/accountd/internal/auth"
	"github.com/holomush/accountd/internal/config"
)

// UsersDeps contains injectable dependencies for the users command.
type UsersDeps struct {
	// DirectoryFactory opens the user directory.
	// Default: openDirectory
	DirectoryFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Directory, func(), error)
}

// NewUsersCmd creates the users subcommand.
func NewUsersCmd() *cobra.Command {
	return newUsersCmdWithDeps(nil)
}

func newUsersCmdWithDeps(deps *UsersDeps) *cobra.Command {
	if deps == nil {
		deps = &UsersDeps{}
	}
	if deps.DirectoryFactory == nil {
		deps.DirectoryFactory = openDirectory
	}

	cmd := &cobra.Command{
		Use:   "users",
		Short: "Administer user accounts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "delete ID",
		Short: "Delete a user by ID",
		Long: `Delete the user with the given ULID. Tokens already issued to the user
are rejected as revoked from then on.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ulid.ParseStrict(args[0])
			if err != nil {
				return oops.Code("INVALID_USER_ID").With("input", args[0]).Wrap(err)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Store.Driver == config.DriverPostgres {
				if err := cfg.RequireDatabaseURL(); err != nil {
					return err
				}
			}
			logger, err := setupLogging(cmd, cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			dir, closeDir, err := deps.DirectoryFactory(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeDir()

			if err := dir.Delete(ctx, id); err != nil {
				if errors.Is(err, auth.ErrNotFound) {
					return oops.Code("USER_NOT_FOUND").With("user_id", id.String()).Errorf("no user with id %s", id)
				}
				return oops.Code("USER_DELETE_FAILED").With("user_id", id.String()).Wrap(err)
			}

			logger.Info("user deleted", "user_id", id.String())
			cmd.Printf("Deleted user %s\n", id)
			return nil
		},
	})

	return cmd
}
