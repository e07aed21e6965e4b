package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tapcore/tap-access/internal/config"
	"github.com/tapcore/tap-access/internal/service"
	"github.com/tapcore/tap-access/internal/utils"
)

// AuthHandler bundles dependencies for the verification and admin
// session endpoints.
type AuthHandler struct {
	Cfg          config.Config
	Verification *service.VerificationService
}

func NewAuthHandler(cfg config.Config, v *service.VerificationService) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Verification: v}
}

// ----- DTOs -----

type requestCodeReq struct {
	AlbumID string `json:"albumId"`
	Email   string `json:"email"`
}
type requestCodeResp struct {
	OK             bool   `json:"ok"`
	VerificationID string `json:"verificationId"`
	DevCode        string `json:"devCode,omitempty"`
}

type verifyCodeReq struct {
	VerificationID string `json:"verificationId"`
	Code           string `json:"code"`
}
type verifyCodeResp struct {
	Token     string `json:"token"`
	Email     string `json:"email"`
	AlbumID   string `json:"albumId"`
	Remaining int    `json:"remaining"`
	Unlocked  bool   `json:"unlocked"`
}

type adminLoginReq struct {
	Passphrase string `json:"passphrase"`
}

// RequestCode starts the email verification flow: a fresh code replaces
// any pending one for (album, email) and goes out through the notifier.
func (h *AuthHandler) RequestCode(c echo.Context) error {
	var req requestCodeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.AlbumID = strings.TrimSpace(req.AlbumID)
	if req.AlbumID == "" || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "albumId/email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Verification.RequestCode(ctx, req.AlbumID, req.Email)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, requestCodeResp{
		OK:             true,
		VerificationID: res.VerificationID,
		DevCode:        res.DevCode,
	})
}

// VerifyCode completes the flow: a matching code consumes the pending
// verification, marks the access record verified and returns a visitor
// session token.
func (h *AuthHandler) VerifyCode(c echo.Context) error {
	var req verifyCodeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.VerificationID) == "" || strings.TrimSpace(req.Code) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "verificationId/code required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Verification.VerifyCode(ctx, strings.TrimSpace(req.VerificationID), req.Code)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, verifyCodeResp{
		Token:     res.Token,
		Email:     res.Email,
		AlbumID:   res.AlbumID,
		Remaining: res.Remaining,
		Unlocked:  res.Unlocked,
	})
}

// AdminLogin exchanges the operator passphrase for an admin session
// token. The endpoint is inert until ADMIN_PASS_HASH is configured.
func (h *AuthHandler) AdminLogin(c echo.Context) error {
	if h.Cfg.AdminPassHash == "" {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "admin login disabled"})
	}
	var req adminLoginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if !utils.VerifyPassphrase(h.Cfg.AdminPassHash, req.Passphrase) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid passphrase"})
	}
	token, err := utils.NewAdminToken(h.Cfg.JWTSecret, h.Cfg.AdminTokenTTL)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"token": token})
}
