// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Output formats for admin commands.
const (
	outputYAML = "yaml"
	outputJSON = "json"
)

func addOutputFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "output", "o", outputYAML, "output format (yaml or json)")
}

// render writes v to w as YAML or indented JSON.
func render(w io.Writer, format string, v any) error {
	switch format {
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return oops.Code("OUTPUT_FAILED").With("format", format).Wrap(err)
		}
		return enc.Close() //nolint:wrapcheck // flush only
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return oops.Code("OUTPUT_FAILED").With("format", format).Wrap(err)
		}
		return nil
	default:
		return oops.Code("OUTPUT_FORMAT_INVALID").With("format", format).Errorf("output must be yaml or json, got %q", format)
	}
}

// readSecret returns flagValue, or the first line of in when it is empty.
func readSecret(in io.Reader, flagValue, name string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", oops.Code("INPUT_REQUIRED").With("input", name).Errorf("%s is required (flag or first line of stdin)", name)
	}
	secret := strings.TrimRight(line, "\r\n")
	if secret == "" {
		return "", oops.Code("INPUT_REQUIRED").With("input", name).Errorf("%s is required (flag or first line of stdin)", name)
	}
	return secret, nil
}
