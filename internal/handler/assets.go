package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tapcore/tap-access/internal/middleware"
	"github.com/tapcore/tap-access/internal/service"
)

// AssetHandler resolves protected asset references into signed URLs.
type AssetHandler struct {
	Assets *service.AssetService
	Remote bool // true when a real blob store backs the signer
}

func NewAssetHandler(a *service.AssetService, remote bool) *AssetHandler {
	return &AssetHandler{Assets: a, Remote: remote}
}

type signReq struct {
	AlbumID string   `json:"albumId"`
	Refs    []string `json:"refs"`
}
type signResp struct {
	Assets []service.SignedAsset `json:"assets"`
}

// Sign runs behind OptionalAuth: anonymous callers still get covers on
// passthrough albums, entitled callers get everything. Refs the caller
// is not entitled to are omitted, not errored.
func (h *AssetHandler) Sign(c echo.Context) error {
	var req signReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.AlbumID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "albumId required"})
	}
	if len(req.Refs) == 0 {
		return c.JSON(http.StatusOK, signResp{Assets: []service.SignedAsset{}})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	assets, err := h.Assets.Sign(ctx, strings.TrimSpace(req.AlbumID), req.Refs, middleware.Payload(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, signResp{Assets: assets})
}

// StorageStatus tells clients whether signed URLs point at the blob
// store or at the local fallback path.
func (h *AssetHandler) StorageStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"remote": h.Remote})
}
