// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/campusauth/internal/config"
)

func TestGenerate(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "nested", "config.schema.json")
	require.NoError(t, generate(outPath))

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	want, err := config.GenerateSchema()
	require.NoError(t, err)
	assert.Equal(t, string(want)+"\n", string(written))
}
