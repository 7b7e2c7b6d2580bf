// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/samber/oops"
	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters.
const (
	MinPBKDF2Iterations     = 100_000
	DefaultPBKDF2Iterations = MinPBKDF2Iterations
	pbkdf2SaltBytes         = 16 // hex-encoded to 32 chars
	pbkdf2KeyLen            = 32
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// CredentialHasher derives and verifies salted password hashes.
type CredentialHasher interface {
	// Hash derives a hash of password. An empty salt makes the hasher
	// generate a fresh random one, which is returned alongside the hash.
	Hash(password, salt string) (hash, usedSalt string, err error)

	// Verify recomputes the hash and compares it in constant time.
	// Returns (true, nil) on match, (false, nil) on mismatch, or an error
	// when the stored hash or salt is malformed.
	Verify(password, hash, salt string) (bool, error)
}

// PBKDF2Hasher implements CredentialHasher with PBKDF2-HMAC-SHA256.
// The hex salt string itself is the KDF salt, so records written by other
// PBKDF2 implementations using the same convention verify unchanged.
type PBKDF2Hasher struct {
	iterations int
}

// NewPBKDF2Hasher creates a hasher. Iteration counts below the minimum are
// raised to MinPBKDF2Iterations.
func NewPBKDF2Hasher(iterations int) *PBKDF2Hasher {
	if iterations < MinPBKDF2Iterations {
		iterations = MinPBKDF2Iterations
	}
	return &PBKDF2Hasher{iterations: iterations}
}

// Iterations returns the configured iteration count.
func (h *PBKDF2Hasher) Iterations() int {
	return h.iterations
}

// GenerateSalt returns a fresh random hex-encoded salt.
func GenerateSalt() (string, error) {
	salt := make([]byte, pbkdf2SaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").
			With("requested_bytes", pbkdf2SaltBytes).
			Wrap(err)
	}
	return hex.EncodeToString(salt), nil
}

// Hash derives the PBKDF2 hash of password.
func (h *PBKDF2Hasher) Hash(password, salt string) (string, string, error) {
	if password == "" {
		return "", "", ErrEmptyPassword
	}
	if salt == "" {
		generated, err := GenerateSalt()
		if err != nil {
			return "", "", err
		}
		salt = generated
	}
	return hex.EncodeToString(h.derive(password, salt)), salt, nil
}

// Verify checks password against a stored hash and salt.
func (h *PBKDF2Hasher) Verify(password, hash, salt string) (bool, error) {
	if salt == "" {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("salt cannot be empty")
	}
	expected, err := hex.DecodeString(hash)
	if err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if len(expected) != pbkdf2KeyLen {
		return false, oops.Code("AUTH_INVALID_HASH").
			With("length", len(expected)).
			Errorf("invalid hash key length: %d", len(expected))
	}

	computed := h.derive(password, salt)
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

func (h *PBKDF2Hasher) derive(password, salt string) []byte {
	return pbkdf2.Key([]byte(password), []byte(salt), h.iterations, pbkdf2KeyLen, sha256.New)
}

// Compile-time interface check.
var _ CredentialHasher = (*PBKDF2Hasher)(nil)
