package core

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a raw password with bcrypt at the given cost. A cost of
// zero (or anything outside bcrypt's supported range) falls back to the
// default cost.
func HashPassword(raw string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether raw matches the stored hash. Malformed or
// foreign-format hashes (corrupted rows, legacy schemes) fail closed: the
// result is false, never an error or a panic.
func CheckPassword(raw, hash string) bool {
	if !isBcryptHash(hash) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}

// isBcryptHash checks for the bcrypt version tags this service has ever
// written. Anything else is treated as no-match.
func isBcryptHash(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") ||
		strings.HasPrefix(hash, "$2b$") ||
		strings.HasPrefix(hash, "$2y$")
}
