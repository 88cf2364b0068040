package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost matches the cost existing operator hashes were created with.
const BcryptCost = 10

// Hasher creates and verifies password hashes.
type Hasher struct {
	// Algo selects the algorithm for new hashes: "bcrypt" (default) or "argon2id".
	Algo string
}

// Hash returns a new hash of password.
func (h Hasher) Hash(password string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(h.Algo)) {
	case "argon2id":
		return argon2id.CreateHash(password, argon2id.DefaultParams)
	case "", "bcrypt":
		out, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
		if err != nil {
			return "", err
		}
		return string(out), nil
	default:
		return "", fmt.Errorf("auth: unsupported hash algorithm %q", h.Algo)
	}
}

// Verify compares password against hash, detecting the algorithm from the
// hash prefix so accounts keep working after AUTH_HASH_ALGO changes.
func (h Hasher) Verify(password, hash string) (bool, error) {
	if strings.HasPrefix(hash, "$argon2id$") {
		return argon2id.ComparePasswordAndHash(password, hash)
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}
