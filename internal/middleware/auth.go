package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tapcore/tap-access/internal/utils"
)

// payloadKey is the context key the auth middleware stores the parsed
// token payload under.
const payloadKey = "auth_payload"

// Payload returns the token payload attached by RequireAuth or
// OptionalAuth, or nil when the request carried no valid token.
func Payload(c echo.Context) *utils.TokenPayload {
	if v, ok := c.Get(payloadKey).(*utils.TokenPayload); ok {
		return v
	}
	return nil
}

func bearerToken(c echo.Context) string {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}

// RequireAuth validates the Bearer token and injects its payload into
// the request context. Requests without a valid token are rejected
// with 401; handlers behind this middleware can rely on Payload(c)
// being non-nil.
func RequireAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			payload := utils.ParseToken(secret, raw)
			if payload == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(payloadKey, payload)
			return next(c)
		}
	}
}

// OptionalAuth parses the Bearer token when present but never rejects
// the request. Anonymous and invalid-token requests proceed with a nil
// payload; the asset gate downgrades them to cover-only access instead
// of failing.
func OptionalAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := bearerToken(c); raw != "" {
				if payload := utils.ParseToken(secret, raw); payload != nil {
					c.Set(payloadKey, payload)
				}
			}
			return next(c)
		}
	}
}

// RequireAdmin enforces the admin role claim. It assumes RequireAuth
// ran earlier in the chain.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			payload := Payload(c)
			if payload == nil || !payload.IsAdmin() {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
