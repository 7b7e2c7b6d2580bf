// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"net/url"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/campusauth/internal/config"
)

// NewConfigCmd creates the config command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(schema, '\n'))
			return err //nolint:wrapcheck // stdout write
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate FILE",
		Short: "Check a configuration file against the schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return oops.Code("CONFIG_READ_FAILED").With("path", args[0]).Wrap(err)
			}
			if err := config.ValidateYAML(data); err != nil {
				return oops.Code("CONFIG_SCHEMA_INVALID").With("path", args[0]).Wrap(err)
			}
			cmd.Printf("%s is valid\n", args[0])
			return nil
		},
	})

	var output string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long:  `Print the configuration after defaults, file, flags and environment are applied. Passwords in URLs are masked.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			masked := *cfg
			masked.Database.URL = redactURL(cfg.Database.URL)
			masked.RateLimit.RedisURL = redactURL(cfg.RateLimit.RedisURL)
			return render(cmd.OutOrStdout(), output, masked)
		},
	}
	addOutputFlag(show, &output)
	cmd.AddCommand(show)

	return cmd
}

// redactURL masks the password of a URL. Values that do not parse are
// masked entirely.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "xxxxx"
	}
	return u.Redacted()
}
