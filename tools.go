// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build tools

// Package main pins the command-line tools used to run the test suites.
package main

import (
	// Runs the integration suites: ginkgo -tags integration ./...
	_ "github.com/onsi/ginkgo/v2/ginkgo"
)
