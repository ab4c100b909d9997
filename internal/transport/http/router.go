package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"vn.io.arda/useradmin/internal/obs"
	"vn.io.arda/useradmin/internal/transport/mw"
)

// NewRouter sets up all Echo routes and middleware.
func NewRouter(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
	}))

	// Liveness and metrics (no auth required)
	e.GET("/", h.Root)
	e.GET("/metrics", echo.WrapHandler(obs.Handler()))

	// API — requires a bearer credential
	v1 := e.Group("")
	v1.Use(mw.RequireBearer())

	v1.POST("/admin", h.Admin)
	v1.POST("/admin/:action", h.Admin)
	v1.GET("/users", h.ListUsers)
	v1.GET("/health", h.Health)

	return e
}
