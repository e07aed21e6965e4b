package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/tapcore/tap-access/internal/repository"
	"github.com/tapcore/tap-access/internal/service"
)

func TestWriteErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{repository.ErrAlbumNotFound, http.StatusNotFound},
		{repository.ErrVerificationNotFound, http.StatusNotFound},
		{repository.ErrVerificationExpired, http.StatusBadRequest},
		{repository.ErrCodeMismatch, http.StatusBadRequest},
		{repository.ErrInvalidPin, http.StatusBadRequest},
		{repository.ErrNotVerified, http.StatusUnauthorized},
		{repository.ErrAlreadyUnlocked, http.StatusConflict},
		{repository.ErrQuotaExhausted, http.StatusForbidden},
		{repository.ErrCapacityReached, http.StatusConflict},
		{service.ErrNotConfigured, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", repository.ErrQuotaExhausted), http.StatusForbidden},
	}

	e := echo.New()
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, writeError(c, tc.err))
		require.Equal(t, tc.code, rec.Code, "error %v", tc.err)
	}
}
