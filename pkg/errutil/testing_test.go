// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil_test

import (
	"testing"
	"time"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"

	"github.com/holomush/campusauth/pkg/errutil"
)

func TestAssertErrorCode_MatchingCode(t *testing.T) {
	err := oops.Code("MY_CODE").Errorf("test error")
	// Should not fail
	errutil.AssertErrorCode(t, err, "MY_CODE")
}

func TestAssertErrorContext_MatchingKeyValue(t *testing.T) {
	err := oops.With("identity", "a@x.com").Errorf("test error")
	// Should not fail
	errutil.AssertErrorContext(t, err, "identity", "a@x.com")
}

func TestAssertErrorContextKey_ReturnsValue(t *testing.T) {
	err := oops.With("remaining", 15*time.Minute).Errorf("locked")
	value := errutil.AssertErrorContextKey(t, err, "remaining")
	assert.Equal(t, 15*time.Minute, value)
}
