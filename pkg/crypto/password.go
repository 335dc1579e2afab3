package crypto

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes plaintext with bcrypt. The salt is embedded in the
// resulting digest, so verification needs nothing beyond the digest itself.
func HashPassword(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
}

// ComparePassword compares plaintext against a bcrypt digest. A mismatch
// returns bcrypt.ErrMismatchedHashAndPassword; only a malformed digest
// produces a different error.
func ComparePassword(hash []byte, plain string) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(plain))
}
