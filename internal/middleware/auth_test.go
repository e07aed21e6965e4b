package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/tapcore/tap-access/internal/utils"
)

const testSecret = "test-secret"

func invoke(t *testing.T, mw echo.MiddlewareFunc, authHeader string) (int, *utils.TokenPayload) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var captured *utils.TokenPayload
	h := mw(func(c echo.Context) error {
		captured = Payload(c)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec.Code, captured
}

func TestRequireAuthAcceptsVisitorToken(t *testing.T) {
	raw, err := utils.NewVisitorToken(testSecret, "fan@example.com", time.Hour)
	require.NoError(t, err)

	code, payload := invoke(t, RequireAuth(testSecret), "Bearer "+raw)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, payload)
	require.Equal(t, "fan@example.com", payload.Email)
}

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	code, _ := invoke(t, RequireAuth(testSecret), "")
	require.Equal(t, http.StatusUnauthorized, code)
}

func TestRequireAuthRejectsGarbage(t *testing.T) {
	code, _ := invoke(t, RequireAuth(testSecret), "Bearer not-a-token")
	require.Equal(t, http.StatusUnauthorized, code)
}

func TestOptionalAuthPassesAnonymous(t *testing.T) {
	code, payload := invoke(t, OptionalAuth(testSecret), "")
	require.Equal(t, http.StatusOK, code)
	require.Nil(t, payload)
}

func TestOptionalAuthIgnoresInvalidToken(t *testing.T) {
	code, payload := invoke(t, OptionalAuth(testSecret), "Bearer junk")
	require.Equal(t, http.StatusOK, code)
	require.Nil(t, payload)
}

func TestOptionalAuthParsesValidToken(t *testing.T) {
	raw, err := utils.NewAdminToken(testSecret, time.Hour)
	require.NoError(t, err)

	code, payload := invoke(t, OptionalAuth(testSecret), "Bearer "+raw)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, payload)
	require.True(t, payload.IsAdmin())
}

func TestRequireAdmin(t *testing.T) {
	adminRaw, err := utils.NewAdminToken(testSecret, time.Hour)
	require.NoError(t, err)
	visitorRaw, err := utils.NewVisitorToken(testSecret, "fan@example.com", time.Hour)
	require.NoError(t, err)

	chain := func(h echo.HandlerFunc) echo.HandlerFunc {
		return RequireAuth(testSecret)(RequireAdmin()(h))
	}

	code, _ := invoke(t, chain, "Bearer "+adminRaw)
	require.Equal(t, http.StatusOK, code)

	code, _ = invoke(t, chain, "Bearer "+visitorRaw)
	require.Equal(t, http.StatusForbidden, code)
}
