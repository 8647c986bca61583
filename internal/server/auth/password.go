package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/Erikmmkarlsson/graphmaster/internal/common"
)

// dummyHash is a valid bcrypt hash of a throwaway value. Login compares
// against it when the username is unknown so that the missing-user and
// wrong-password paths cost the same.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// HashPassword generates a bcrypt hash for the given plaintext password.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", errors.New("empty password")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword validates the given plaintext password against the stored
// hash, returning common.ErrInvalidCredentials on mismatch.
func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return common.ErrInvalidCredentials
		}
		return err
	}
	return nil
}

// BurnPassword spends one bcrypt comparison on a dummy hash. Call it on the
// unknown-user login path before returning ErrInvalidCredentials.
func BurnPassword(password string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
}
