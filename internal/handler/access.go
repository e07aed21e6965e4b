package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tapcore/tap-access/internal/config"
	"github.com/tapcore/tap-access/internal/middleware"
	"github.com/tapcore/tap-access/internal/repository"
	"github.com/tapcore/tap-access/internal/service"
)

// AccessHandler exposes the PIN lifecycle and access status endpoints.
// All of them resolve the visitor's email from the session token, never
// from the request body, so a token holder can only act on their own
// record.
type AccessHandler struct {
	Cfg  config.Config
	Gate *service.GateService
}

func NewAccessHandler(cfg config.Config, g *service.GateService) *AccessHandler {
	return &AccessHandler{Cfg: cfg, Gate: g}
}

// ----- DTOs -----

type issueReq struct {
	AlbumID string `json:"albumId"`
}
type issueResp struct {
	Pin       string                   `json:"pin"`
	Remaining int                      `json:"remaining"`
	Capacity  repository.AlbumCapacity `json:"capacity"`
}

type redeemReq struct {
	AlbumID string `json:"albumId"`
	Pin     string `json:"pin"`
}
type redeemResp struct {
	OK              bool                     `json:"ok"`
	Remaining       int                      `json:"remaining"`
	AlreadyUnlocked bool                     `json:"alreadyUnlocked,omitempty"`
	Capacity        repository.AlbumCapacity `json:"capacity"`
}

type statusResp struct {
	Verified  bool                     `json:"verified"`
	Unlocked  bool                     `json:"unlocked"`
	Remaining int                      `json:"remaining"`
	ActivePin bool                     `json:"activePin"`
	Capacity  repository.AlbumCapacity `json:"capacity"`
}

type resetReq struct {
	Email string `json:"email"`
}

type statusReq struct {
	AlbumID string `json:"albumId"`
}

// visitorEmail extracts the email claim from the authenticated payload.
// Admin tokens carry no email and cannot drive the visitor endpoints.
func visitorEmail(c echo.Context) (string, bool) {
	payload := middleware.Payload(c)
	if payload == nil || payload.Email == "" {
		return "", false
	}
	return payload.Email, true
}

// Issue mints a single-use PIN for the authenticated visitor.
func (h *AccessHandler) Issue(c echo.Context) error {
	email, ok := visitorEmail(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "visitor token required"})
	}
	var req issueReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.AlbumID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "albumId required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Gate.Issue(ctx, strings.TrimSpace(req.AlbumID), email, h.Cfg.MaxPerEmail)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, issueResp{
		Pin:       res.Pin,
		Remaining: res.Remaining,
		Capacity:  res.Capacity,
	})
}

// Redeem consumes a PIN and unlocks the album for the visitor.
func (h *AccessHandler) Redeem(c echo.Context) error {
	email, ok := visitorEmail(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "visitor token required"})
	}
	var req redeemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.AlbumID) == "" || strings.TrimSpace(req.Pin) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "albumId/pin required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Gate.Redeem(ctx, strings.TrimSpace(req.AlbumID), email, req.Pin)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, redeemResp{
		OK:              true,
		Remaining:       res.Remaining,
		AlreadyUnlocked: res.AlreadyUnlocked,
		Capacity:        res.Capacity,
	})
}

// Status reports the visitor's standing on one album.
func (h *AccessHandler) Status(c echo.Context) error {
	email, ok := visitorEmail(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "visitor token required"})
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.AlbumID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "albumId required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Gate.Status(ctx, strings.TrimSpace(req.AlbumID), email, h.Cfg.MaxPerEmail)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, statusResp{
		Verified:  res.Verified,
		Unlocked:  res.Unlocked,
		Remaining: res.Remaining,
		ActivePin: res.ActivePin,
		Capacity:  res.Capacity,
	})
}

// Reset wipes one visitor's record on an album and returns the freed
// PIN slots to the pool. Admin only; repeat calls are no-ops.
func (h *AccessHandler) Reset(c echo.Context) error {
	albumID := strings.TrimSpace(c.Param("id"))
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if albumID == "" || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "album id/email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Gate.ResetAccess(ctx, albumID, req.Email); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
