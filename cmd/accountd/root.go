// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/holomush/accountd/internal/config"
	"github.com/holomush/accountd/internal/logging"
	"github.com/holomush/accountd/internal/xdg"
)

const serviceName = "accountd"

// NewRootCmd creates the root command for the accountd CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(
		NewServeCmd(),
		NewMigrateCmd(),
		NewStatusCmd(),
		NewConfigCmd(),
		NewUsersCmd(),
	)
}

func newRootCmd(subcommands ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accountd",
		Short: "accountd - account registration and bearer token service",
		Long: `accountd registers users, exchanges email and password for signed
bearer tokens, and resolves tokens back to the calling user.`,
		SilenceUsage: true,
	}

	// Global flags: config file path plus every configuration key.
	cmd.PersistentFlags().String("config", "", "config file path (default: XDG_CONFIG_HOME/accountd/config.yaml if present)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(subcommands...)

	return cmd
}

// configPath returns --config, or the XDG default when that file exists.
func configPath(cmd *cobra.Command) string {
	if path, err := cmd.Flags().GetString("config"); err == nil && path != "" {
		return path
	}
	return xdg.DefaultConfigFile()
}

// loadConfig loads and validates the configuration for cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(config.Options{
		Flags: cmd.Flags(),
		File:  configPath(cmd),
	})
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging installs the process logger described by cfg.
func setupLogging(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	return logging.Setup(logging.Options{
		Service: serviceName,
		Version: cmd.Root().Version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
	}, cmd.ErrOrStderr())
}
