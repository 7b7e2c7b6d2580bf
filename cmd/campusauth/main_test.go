// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/campusauth/pkg/errutil"
)

// execute runs the root command with args and returns stdout and the error.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetIn(bytes.NewBufferString(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	output, err := execute(t, "", "--help")
	require.NoError(t, err)

	for _, sub := range []string{"serve", "migrate", "account", "session", "audit", "config"} {
		assert.Contains(t, output, sub, "Help missing %q command", sub)
	}
}

func TestRootCommand_PersistentConfigFlags(t *testing.T) {
	output, err := execute(t, "", "session", "purge", "--help")
	require.NoError(t, err)

	for _, flag := range []string{"--config", "--storage", "--database-url", "--rate-limit-backend", "--log-format"} {
		assert.Contains(t, output, flag)
	}
}

func TestLoadConfig_UsesXDGConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "campusauth", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("log:\n  format: xml\n"), 0o600))

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"session", "purge", "--storage", "memory"})
	t.Setenv("XDG_CONFIG_HOME", dir)

	err := cmd.Execute()
	errutil.AssertErrorCode(t, err, "CONFIG_SCHEMA_INVALID")
}

func TestRootCommand_VersionFlag(t *testing.T) {
	cmd := NewRootCmd()
	cmd.Version = "test-version"
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "test-version")
}

func TestUnknownCommand(t *testing.T) {
	_, err := execute(t, "", "nonexistent")
	require.Error(t, err)
}

func TestInvalidFlag(t *testing.T) {
	_, err := execute(t, "", "--invalid-flag")
	require.Error(t, err)
}

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		name     string
		version  string
		commit   string
		date     string
		expected string
	}{
		{
			name:     "default values",
			version:  "dev",
			commit:   "unknown",
			date:     "unknown",
			expected: "dev (commit: unknown, built: unknown)",
		},
		{
			name:     "release version",
			version:  "1.0.0",
			commit:   "abc123",
			date:     "2026-01-15",
			expected: "1.0.0 (commit: abc123, built: 2026-01-15)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatVersion(tt.version, tt.commit, tt.date))
		})
	}
}

func TestRun(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"campusauth", "--help"}
	assert.Equal(t, 0, run())

	os.Args = []string{"campusauth", "nonexistent-command"}
	assert.Equal(t, 1, run())
}
