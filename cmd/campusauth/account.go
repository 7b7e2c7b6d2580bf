// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/campusauth/internal/auth"
)

// NewAccountCmd creates the account command group.
func NewAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Register, log in and inspect accounts",
	}
	cmd.AddCommand(newAccountRegisterCmd())
	cmd.AddCommand(newAccountLoginCmd())
	cmd.AddCommand(newAccountShowCmd())
	return cmd
}

func newAccountRegisterCmd() *cobra.Command {
	var req auth.RegisterRequest
	var password string

	cmd := &cobra.Command{
		Use:   "register EMAIL",
		Short: "Register a new account",
		Long: `Register a new account. The password is taken from --password or, when
that is empty, from the first line of stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := readSecret(cmd.InOrStdin(), password, "password")
			if err != nil {
				return err
			}
			app, err := newAdminApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			req.Identity = args[0]
			req.Credential = secret
			req.OriginAddress = cliOrigin
			identity, err := app.service.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			cmd.Printf("Registered %s\n", identity)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "account password (default: read from stdin)")
	cmd.Flags().StringVar(&req.Nickname, "nickname", "", "display nickname (required)")
	cmd.Flags().StringVar(&req.FullName, "full-name", "", "full name (defaults to the nickname)")
	cmd.Flags().StringVar(&req.GroupID, "group", "", "group to join")
	return cmd
}

func newAccountLoginCmd() *cobra.Command {
	var password, output string

	cmd := &cobra.Command{
		Use:   "login EMAIL",
		Short: "Verify a password and issue a session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := readSecret(cmd.InOrStdin(), password, "password")
			if err != nil {
				return err
			}
			app, err := newAdminApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.service.Authenticate(cmd.Context(), auth.AuthenticateRequest{
				Identity:      args[0],
				Credential:    secret,
				OriginAddress: cliOrigin,
			})
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), output, result)
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "account password (default: read from stdin)")
	addOutputFlag(cmd, &output)
	return cmd
}

// accountView is what account show prints.
type accountView struct {
	Profile  *auth.Profile   `json:"profile" yaml:"profile"`
	Sessions []*auth.Session `json:"sessions" yaml:"sessions"`
}

func newAccountShowCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show EMAIL",
		Short: "Show an account's profile and sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAdminApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			profile, err := app.service.Profile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			sessions, err := app.service.Sessions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if sessions == nil {
				sessions = []*auth.Session{}
			}
			return render(cmd.OutOrStdout(), output, accountView{Profile: profile, Sessions: sessions})
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}
