// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"
)

// NewSessionCmd creates the session command group.
func NewSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Validate, end and purge sessions",
	}
	cmd.AddCommand(newSessionValidateCmd())
	cmd.AddCommand(newSessionLogoutCmd())
	cmd.AddCommand(newSessionPurgeCmd())
	return cmd
}

func newSessionValidateCmd() *cobra.Command {
	var token, origin, output string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a session token",
		Long: `Check a session token. The token is taken from --token or, when that is
empty, from the first line of stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := readSecret(cmd.InOrStdin(), token, "token")
			if err != nil {
				return err
			}
			app, err := newAdminApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			session, err := app.service.ValidateSession(cmd.Context(), secret, origin)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), output, session)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "session token (default: read from stdin)")
	cmd.Flags().StringVar(&origin, "origin", cliOrigin, "origin address to validate from")
	addOutputFlag(cmd, &output)
	return cmd
}

func newSessionLogoutCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Invalidate a session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := readSecret(cmd.InOrStdin(), token, "token")
			if err != nil {
				return err
			}
			app, err := newAdminApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.service.InvalidateSession(cmd.Context(), secret, cliOrigin); err != nil {
				return err
			}
			cmd.Println("Session invalidated")
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "session token (default: read from stdin)")
	return cmd
}

func newSessionPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired and invalidated sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newAdminApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			n, err := app.service.PurgeSessions(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("Purged %d sessions\n", n)
			return nil
		},
	}
}
