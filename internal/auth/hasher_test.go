// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"

	"github.com/holomush/campusauth/internal/auth"
	"github.com/holomush/campusauth/pkg/errutil"
)

func TestNewPBKDF2Hasher_ClampsIterations(t *testing.T) {
	assert.Equal(t, auth.MinPBKDF2Iterations, auth.NewPBKDF2Hasher(0).Iterations())
	assert.Equal(t, auth.MinPBKDF2Iterations, auth.NewPBKDF2Hasher(1000).Iterations())
	assert.Equal(t, 200_000, auth.NewPBKDF2Hasher(200_000).Iterations())
}

func TestPBKDF2Hasher_HashAndVerify(t *testing.T) {
	hasher := auth.NewPBKDF2Hasher(auth.DefaultPBKDF2Iterations)

	hash, salt, err := hasher.Hash("Correct1horse", "")
	require.NoError(t, err)
	assert.Len(t, salt, 32, "16 random bytes hex encoded")
	assert.Len(t, hash, 64, "32 byte key hex encoded")

	ok, err := hasher.Verify("Correct1horse", hash, salt)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Verify("Correct1hors", hash, salt)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPBKDF2Hasher_FreshSaltPerHash(t *testing.T) {
	hasher := auth.NewPBKDF2Hasher(auth.DefaultPBKDF2Iterations)

	hash1, salt1, err := hasher.Hash("Same1password", "")
	require.NoError(t, err)
	hash2, salt2, err := hasher.Hash("Same1password", "")
	require.NoError(t, err)

	assert.NotEqual(t, salt1, salt2)
	assert.NotEqual(t, hash1, hash2)
}

func TestPBKDF2Hasher_Deterministic(t *testing.T) {
	hasher := auth.NewPBKDF2Hasher(auth.DefaultPBKDF2Iterations)
	salt := "00112233445566778899aabbccddeeff"

	hash1, used, err := hasher.Hash("Repeat1able", salt)
	require.NoError(t, err)
	assert.Equal(t, salt, used)
	hash2, _, err := hasher.Hash("Repeat1able", salt)
	require.NoError(t, err)
	assert.Equal(t, hash1, hash2)
}

func TestPBKDF2Hasher_SaltStringIsKDFSalt(t *testing.T) {
	hasher := auth.NewPBKDF2Hasher(auth.DefaultPBKDF2Iterations)
	salt := "a1b2c3d4e5f60718293a4b5c6d7e8f90"

	hash, _, err := hasher.Hash("Interop1", salt)
	require.NoError(t, err)

	want := pbkdf2.Key([]byte("Interop1"), []byte(salt), auth.DefaultPBKDF2Iterations, 32, sha256.New)
	assert.Equal(t, hex.EncodeToString(want), hash)
}

func TestPBKDF2Hasher_EmptyPassword(t *testing.T) {
	hasher := auth.NewPBKDF2Hasher(auth.DefaultPBKDF2Iterations)

	_, _, err := hasher.Hash("", "")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "AUTH_EMPTY_PASSWORD")
}

func TestPBKDF2Hasher_VerifyMalformed(t *testing.T) {
	hasher := auth.NewPBKDF2Hasher(auth.DefaultPBKDF2Iterations)

	tests := []struct {
		name string
		hash string
		salt string
	}{
		{name: "empty salt", hash: "00", salt: ""},
		{name: "non hex hash", hash: "zz", salt: "00112233445566778899aabbccddeeff"},
		{name: "short hash", hash: "abcd", salt: "00112233445566778899aabbccddeeff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := hasher.Verify("Whatever1", tt.hash, tt.salt)
			require.Error(t, err)
			assert.False(t, ok)
			errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
		})
	}
}

func TestGenerateSalt(t *testing.T) {
	salt, err := auth.GenerateSalt()
	require.NoError(t, err)
	raw, err := hex.DecodeString(salt)
	require.NoError(t, err)
	assert.Len(t, raw, 16)
}
