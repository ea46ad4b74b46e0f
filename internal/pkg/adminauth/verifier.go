// Package adminauth verifies the administrative API key protecting
// balance adjustments and manual tier changes.
package adminauth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrAdminDisabled reports that no admin key hash is configured, which
// leaves the administrative endpoints unusable.
var ErrAdminDisabled = errors.New("admin surface disabled: no key hash configured")

// ErrKeyMismatch reports a wrong admin key.
var ErrKeyMismatch = errors.New("admin key mismatch")

// KeyVerifier checks a presented admin key.
type KeyVerifier interface {
	Verify(key string) error
}

// BcryptVerifier compares presented keys against a stored bcrypt hash. Only
// the hash is ever configured or logged, never the key itself.
type BcryptVerifier struct {
	hash string
}

// NewBcryptVerifier creates a verifier from the configured hash. An empty
// hash disables the admin surface.
func NewBcryptVerifier(hash string) *BcryptVerifier {
	return &BcryptVerifier{hash: hash}
}

// Verify checks the key against the stored hash.
func (v *BcryptVerifier) Verify(key string) error {
	if v.hash == "" {
		return ErrAdminDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(v.hash), []byte(key)); err != nil {
		return ErrKeyMismatch
	}
	return nil
}

// HashKey produces a bcrypt hash for a key, for provisioning and tests.
func HashKey(key string) (string, error) {
	encoded, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
