package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tapcore/tap-access/internal/repository"
	"github.com/tapcore/tap-access/internal/service"
)

// writeError maps the service error taxonomy onto HTTP. Every endpoint
// funnels its failures through here so a given condition always reports
// the same status and code.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrAlbumNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "album not found"})
	case errors.Is(err, repository.ErrVerificationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "verification not found"})
	case errors.Is(err, repository.ErrVerificationExpired):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code expired"})
	case errors.Is(err, repository.ErrCodeMismatch):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "incorrect code"})
	case errors.Is(err, repository.ErrInvalidPin):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pin"})
	case errors.Is(err, repository.ErrNotVerified):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "email not verified"})
	case errors.Is(err, repository.ErrAlreadyUnlocked):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already unlocked"})
	case errors.Is(err, repository.ErrQuotaExhausted):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "redemption budget exhausted"})
	case errors.Is(err, repository.ErrCapacityReached):
		return c.JSON(http.StatusConflict, echo.Map{"error": "album capacity reached"})
	case errors.Is(err, service.ErrNotConfigured):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "email delivery not configured"})
	default:
		c.Logger().Errorf("internal error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
