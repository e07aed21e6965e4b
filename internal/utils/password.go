package utils

import "golang.org/x/crypto/bcrypt"

// HashPassphrase returns the bcrypt hash of a plaintext passphrase.  It
// exists for operator tooling; the server itself only ever compares.
func HashPassphrase(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassphrase safely compares a bcrypt hash and a plaintext passphrase.
func VerifyPassphrase(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
