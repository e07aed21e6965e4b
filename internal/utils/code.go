package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// codeSpace is the number of distinct 6-digit codes (100000..999999).
var codeSpace = big.NewInt(900000)

// GenerateCode returns a uniformly random 6-digit numeric code as a
// string. The same generator backs both verification codes and PINs.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// NormalizeCode strips surrounding whitespace from a submitted code so
// copy-pasted input compares equal to the stored value.
func NormalizeCode(code string) string {
	return strings.TrimSpace(code)
}

// NormalizeEmail canonicalizes an email address for use as a lookup key:
// surrounding whitespace is stripped and the address is lower-cased.
// All persistence and comparisons use the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
