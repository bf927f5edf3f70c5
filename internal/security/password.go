package security

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// isBcryptHash reports whether the configured secret is a bcrypt hash.
func isBcryptHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}

// CheckPassword compares a candidate against the configured admin secret.
// Plaintext secrets are compared in constant time; bcrypt hashes are verified with bcrypt.
func CheckPassword(configured, candidate string) bool {
	if configured == "" || candidate == "" {
		return false
	}
	if isBcryptHash(configured) {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(candidate)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(candidate)) == 1
}
