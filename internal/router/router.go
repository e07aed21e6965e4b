package router

import (
	"github.com/labstack/echo/v4"

	"github.com/tapcore/tap-access/internal/handler"
	"github.com/tapcore/tap-access/internal/middleware"
)

// Deps bundles everything route registration needs.
type Deps struct {
	JWTSecret string
	RateLimit echo.MiddlewareFunc // applied to the code request endpoint
	Auth      *handler.AuthHandler
	Access    *handler.AccessHandler
	Assets    *handler.AssetHandler
	Albums    *handler.AlbumHandler
}

// Register wires all routes onto the Echo instance. Three tiers:
// anonymous (request/verify code, admin login, asset signing with
// optional token), visitor (PIN lifecycle and status, behind a valid
// session token), and admin (access reset, behind the role claim).
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	api := e.Group("/api")

	// Code request is the only endpoint that makes the service send
	// traffic on a visitor's behalf, so it alone carries the limiter.
	auth := api.Group("/auth")
	if d.RateLimit != nil {
		auth.POST("/request-code", d.Auth.RequestCode, d.RateLimit)
	} else {
		auth.POST("/request-code", d.Auth.RequestCode)
	}
	auth.POST("/verify-code", d.Auth.VerifyCode)

	api.POST("/admin/login", d.Auth.AdminLogin)

	// Asset signing accepts anonymous callers: the gate decides per ref
	// what they may see.
	api.POST("/assets/sign", d.Assets.Sign, middleware.OptionalAuth(d.JWTSecret))
	api.GET("/storage/status", d.Assets.StorageStatus)

	visitor := api.Group("", middleware.RequireAuth(d.JWTSecret))
	visitor.POST("/pins/issue", d.Access.Issue)
	visitor.POST("/pins/redeem", d.Access.Redeem)
	visitor.POST("/access/status", d.Access.Status)

	admin := api.Group("/admin", middleware.RequireAuth(d.JWTSecret), middleware.RequireAdmin())
	admin.POST("/albums/sync", d.Albums.Sync)
	admin.DELETE("/albums/:id", d.Albums.Delete)
	admin.POST("/albums/:id/access/reset", d.Access.Reset)
}
