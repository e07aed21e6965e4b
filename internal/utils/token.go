package utils // package utils provides helpers for session tokens, hashing and codes

import (
	"time" // time utilities for computing expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// RoleAdmin is the elevated role embedded in administrative session
// tokens.  Visitor tokens carry no role at all.
const RoleAdmin = "admin"

// TokenPayload is the verified content of a session token.  Email is set
// for visitor tokens, Role for admin tokens; the rest of the system
// treats the token as opaque beyond these two fields.
type TokenPayload struct {
	Email string // normalized email address proven by verification
	Role  string // "admin" for elevated tokens, empty otherwise
}

// IsAdmin reports whether the payload carries administrative elevation.
func (p *TokenPayload) IsAdmin() bool { return p != nil && p.Role == RoleAdmin }

// NewVisitorToken builds and signs an HS256 session token binding the
// verified email to the protocol.  Visitor tokens are deliberately
// long-lived: proving email ownership once should carry a fan for the
// order of a year.
func NewVisitorToken(secret, email string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"email": email,
		"exp":   now.Add(ttl).Unix(),
		"iat":   now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// NewAdminToken builds and signs a short-lived elevated token.  It
// carries only the role claim; admin identity is the passphrase, not an
// email address.
func NewAdminToken(secret string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"role": RoleAdmin,
		"exp":  now.Add(ttl).Unix(),
		"iat":  now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// ParseToken verifies the signature and expiry of a session token and
// returns its payload.  Any tamper, wrong algorithm or expiry yields a
// nil payload; callers must treat nil as "not authenticated" and never
// as an error to propagate.
func ParseToken(secret, raw string) *TokenPayload {
	if raw == "" {
		return nil
	}
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject any signing method other than HMAC.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return nil
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	var p TokenPayload
	if v, ok := claims["email"].(string); ok {
		p.Email = v
	}
	if v, ok := claims["role"].(string); ok {
		p.Role = v
	}
	if p.Email == "" && p.Role == "" {
		return nil
	}
	return &p
}
