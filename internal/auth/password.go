package auth

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordTooShort is returned by CheckPasswordPolicy.
var ErrPasswordTooShort = errors.New("password too short")

// bcrypt ignores everything past 72 bytes.
const maxPasswordBytes = 72

// CheckPasswordPolicy enforces the minimum length (in characters) and bcrypt's input limit.
func CheckPasswordPolicy(password string, minLength int) error {
	if utf8.RuneCountInString(password) < minLength {
		return ErrPasswordTooShort
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("password longer than %d bytes", maxPasswordBytes)
	}
	return nil
}

// HashPassword generates a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckPasswordHash compares a plaintext password with a stored bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
