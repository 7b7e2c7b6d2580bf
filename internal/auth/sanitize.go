// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Field length limits applied by Clean during registration.
const (
	MaxIdentityLength = 100
	MaxNicknameLength = 50
	MaxFullNameLength = 100
	MaxGroupIDLength  = 50
	MinPasswordLength = 8
)

// identityRegex matches a conventional email address shape.
var identityRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// injectionPatterns are removed from free text before it is stored.
// Queries are always parameterized; this only keeps stored text inert.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\s*;\s*|\s*--\s*|\s*/\*\s*|\s*\*/\s*|\s*union\s+select\s*|\s*drop\s+table\s*|\s*delete\s+from\s*|\s*insert\s+into\s*|\s*update\s+set\s*)`),
	regexp.MustCompile(`(?i)(\s*or\s+1\s*=\s*1\s*|\s*and\s+1\s*=\s*1\s*)`),
	regexp.MustCompile(`(?i)(\s*exec\s*\(|\s*xp_cmdshell\s*)`),
	regexp.MustCompile(`(?is)(\s*<script\b[^>]*>.*?</script\s*>|\s*javascript:|\s*on\w+\s*=)`),
	regexp.MustCompile(`(?i)(\s*alert\s*\(|\s*prompt\s*\(|\s*confirm\s*\()`),
}

// Clean normalizes untrusted text: control characters are dropped,
// injection-looking substrings removed and markup HTML-escaped. The result
// is trimmed and holds at most maxLen runes, never ending in a partial entity.
func Clean(text string, maxLen int) string {
	if text == "" {
		return ""
	}

	cleaned := strings.Map(func(r rune) rune {
		if r < 0x20 {
			return -1
		}
		return r
	}, text)

	for _, pattern := range injectionPatterns {
		cleaned = pattern.ReplaceAllString(cleaned, "")
	}

	cleaned = html.EscapeString(cleaned)

	if maxLen > 0 && utf8.RuneCountInString(cleaned) > maxLen {
		cleaned = truncateEscaped(cleaned, maxLen)
	}

	return strings.TrimSpace(cleaned)
}

// truncateEscaped cuts escaped text to maxLen runes without splitting an
// entity. Every '&' in escaped text starts one, so a trailing '&' with no
// closing ';' is dropped along with what follows it.
func truncateEscaped(text string, maxLen int) string {
	cut := string([]rune(text)[:maxLen])
	if amp := strings.LastIndexByte(cut, '&'); amp >= 0 && !strings.Contains(cut[amp:], ";") {
		cut = cut[:amp]
	}
	return cut
}

// NormalizeIdentity lower-cases and trims an identity.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// ValidateIdentityFormat reports whether identity looks like an email address.
func ValidateIdentityFormat(identity string) bool {
	if identity == "" || len(identity) > MaxIdentityLength {
		return false
	}
	return identityRegex.MatchString(identity)
}

// ValidateCredentialStrength checks the password rules in order and returns
// the first one violated as a Validation error.
func ValidateCredentialStrength(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return validationError("password must be at least %d characters", MinPasswordLength)
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasUpper {
		return validationError("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return validationError("password must contain at least one lowercase letter")
	}
	if !hasDigit {
		return validationError("password must contain at least one digit")
	}
	return nil
}
