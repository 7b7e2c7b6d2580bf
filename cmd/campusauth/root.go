// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/campusauth/internal/config"
)

// NewRootCmd creates the root command for the campusauth CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campusauth",
		Short: "campusauth - account authentication and sessions",
		Long: `campusauth registers accounts, verifies credentials with lockout and
rate limiting, and issues bearer sessions backed by an append-only audit log.`,
		SilenceUsage: true,
	}

	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd(nil))
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewAccountCmd())
	cmd.AddCommand(NewSessionCmd())
	cmd.AddCommand(NewAuditCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}
