package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tapcore/tap-access/internal/config"
	"github.com/tapcore/tap-access/internal/repository"
)

// AlbumHandler is the provisioning surface the surrounding catalog
// product talks to. It registers albums with this service so the
// governor has a row to count against.
type AlbumHandler struct {
	Cfg    config.Config
	Albums *repository.AlbumRepo
}

func NewAlbumHandler(cfg config.Config, a *repository.AlbumRepo) *AlbumHandler {
	return &AlbumHandler{Cfg: cfg, Albums: a}
}

type albumSyncReq struct {
	ID               string  `json:"id"`
	Slug             string  `json:"slug"`
	EmailGateEnabled *bool   `json:"emailGateEnabled"`
	MaxUnlocks       *uint32 `json:"maxUnlocks"`
	MaxActivePins    *uint32 `json:"maxActivePins"`
}

// Sync upserts an album row. Omitted fields fall back to configured
// defaults; counters are never touched, so re-syncing a live album is
// safe.
func (h *AlbumHandler) Sync(c echo.Context) error {
	var req albumSyncReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.ID = strings.TrimSpace(req.ID)
	req.Slug = strings.TrimSpace(req.Slug)
	if req.ID == "" || req.Slug == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id/slug required"})
	}

	gate := true
	if req.EmailGateEnabled != nil {
		gate = *req.EmailGateEnabled
	}
	maxUnlocks := h.Cfg.MaxUnlocks
	if req.MaxUnlocks != nil && *req.MaxUnlocks > 0 {
		maxUnlocks = *req.MaxUnlocks
	}
	maxActivePins := h.Cfg.MaxActivePins
	if req.MaxActivePins != nil && *req.MaxActivePins > 0 {
		maxActivePins = *req.MaxActivePins
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Albums.Ensure(ctx, req.ID, req.Slug, gate, maxUnlocks, maxActivePins); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// Delete removes an album and everything hanging off it.
func (h *AlbumHandler) Delete(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "album id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Albums.Delete(ctx, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
