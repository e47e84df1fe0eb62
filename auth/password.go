// Package auth wraps password credential hashing for registration, login and
// the legacy password backfill.
package auth

import "golang.org/x/crypto/bcrypt"

// DefaultPassword is the placeholder credential assigned to legacy rows that
// predate password auth. Operators must force a reset before relying on these
// accounts.
const DefaultPassword = "changeme"

// HashPassword hashes a plaintext password with bcrypt
func HashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword reports whether plain matches the stored bcrypt hash
func VerifyPassword(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
