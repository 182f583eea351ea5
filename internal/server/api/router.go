package api

import (
	"strconv"

	"syncbox/internal/server/config"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SetupRouter creates and configures the echo router with all routes and
// middleware. The caller owns the upload limiter and stops it on shutdown.
func SetupRouter(handler *Handler, uploadLimiter *RateLimiter, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))
	e.Use(middleware.BodyLimit(strconv.FormatInt(cfg.MaxUploadSize, 10)))
	e.Use(RequestLogger())

	auth := RequireAuth()

	// Health
	e.GET("/health", handler.HandleHealth)

	// Session
	e.POST("/api/login", handler.HandleLogin)
	e.GET("/api/check-auth", handler.HandleCheckAuth)
	e.GET("/api/logout", handler.HandleLogout)

	// Texts
	e.POST("/api/sync-text", handler.HandleSyncText, auth)

	// Files (upload rate-limited)
	e.POST("/api/upload-file", handler.HandleUploadFile, auth, uploadLimiter.Middleware())
	e.GET("/api/download/:id", handler.HandleDownload, auth)

	// URLs
	e.POST("/api/shorten-url", handler.HandleShortenURL, auth)
	e.GET("/api/url-history", handler.HandleURLHistory, auth)
	e.DELETE("/api/delete-url/:id", handler.HandleDeleteURL, auth)
	e.GET("/s/:code", handler.HandleRedirect)

	// History
	e.GET("/api/history", handler.HandleHistory, auth)
	e.POST("/api/clear-history", handler.HandleClearHistory, auth)
	e.DELETE("/api/clear-history", handler.HandleClearHistory, auth)

	// Stats
	e.GET("/api/stats", handler.HandleStats, auth)

	return e
}
