package authkit

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCredentialStore hashes and verifies local passwords with bcrypt.
type PasswordCredentialStore struct {
	cost int
}

// NewPasswordCredentialStore constructs a store at bcrypt's default cost.
func NewPasswordCredentialStore() *PasswordCredentialStore {
	return &PasswordCredentialStore{cost: bcrypt.DefaultCost}
}

// Hash derives an irreversible digest for the plaintext.
func (store *PasswordCredentialStore) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), store.cost)
	if err != nil {
		return "", fmt.Errorf("password.hash: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether the plaintext matches the stored digest. Comparison
// is delegated to bcrypt; mismatches return false, never an error.
func (store *PasswordCredentialStore) Verify(plaintext string, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

const placeholderPasswordByteLength = 16

// RandomPlaceholderPassword generates the never-disclosed password assigned
// to SSO-only accounts. It is hashed before storage so a local login with it
// can never succeed.
func RandomPlaceholderPassword() (string, error) {
	buffer := make([]byte, placeholderPasswordByteLength)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("password.random: %w", err)
	}
	return hex.EncodeToString(buffer), nil
}
