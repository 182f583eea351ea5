package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"syncbox/internal/server/service"

	"github.com/labstack/echo/v4"
)

// Handler contains the HTTP handlers for the sync API.
type Handler struct {
	svc *service.SyncService
}

// NewHandler creates a new handler with the given service dependency.
func NewHandler(svc *service.SyncService) *Handler {
	return &Handler{svc: svc}
}

type loginRequest struct {
	Password string `json:"password"`
}

type textRequest struct {
	Text string `json:"text"`
}

type urlRequest struct {
	URL string `json:"url"`
}

// HandleLogin handles POST /api/login.
// On a correct password it sets the auth cookie for 90 days.
func (h *Handler) HandleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"message": "invalid request body",
		})
	}

	if !h.svc.VerifyPassword(req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"success": false,
			"message": "wrong password",
		})
	}

	c.SetCookie(&http.Cookie{
		Name:     AuthCookieName,
		Value:    AuthCookieValue,
		Path:     "/",
		Expires:  time.Now().Add(AuthCookieTTL),
		HttpOnly: true,
		Secure:   false,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "login successful",
	})
}

// HandleCheckAuth handles GET /api/check-auth.
// Does its own cookie check so it can answer with the authenticated flag
// instead of the generic error envelope.
func (h *Handler) HandleCheckAuth(c echo.Context) error {
	if !IsAuthenticated(c) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"authenticated": false})
	}
	return c.JSON(http.StatusOK, echo.Map{"authenticated": true})
}

// HandleLogout handles GET /api/logout.
func (h *Handler) HandleLogout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "logged out",
	})
}

// HandleSyncText handles POST /api/sync-text.
func (h *Handler) HandleSyncText(c echo.Context) error {
	var req textRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"message": "invalid request body",
		})
	}

	if _, err := h.svc.AppendText(c.Request().Context(), req.Text, c.Request().UserAgent()); err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "text synced",
	})
}

// HandleUploadFile handles POST /api/upload-file.
// Accepts a multipart form with a "file" field.
func (h *Handler) HandleUploadFile(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"message": "file is required (use form field 'file')",
		})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false,
			"message": "failed to read uploaded file",
		})
	}
	defer src.Close()

	_, err = h.svc.AppendFile(
		c.Request().Context(),
		fileHeader.Filename,
		src,
		fileHeader.Size,
		c.Request().UserAgent(),
	)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "file uploaded",
	})
}

// HandleShortenURL handles POST /api/shorten-url.
func (h *Handler) HandleShortenURL(c echo.Context) error {
	var req urlRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"message": "invalid request body",
		})
	}

	result, err := h.svc.ShortenURL(c.Request().Context(), req.URL, c.Request().UserAgent())
	if err != nil {
		return mapServiceError(c, err)
	}

	message := "url shortened"
	if result.Reused {
		message = "url already shortened"
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"message":    message,
		"short_url":  result.ShortURL,
		"short_code": result.ShortCode,
	})
}

// HandleRedirect handles GET /s/:code.
// Permanently redirects to the long URL and counts the click.
func (h *Handler) HandleRedirect(c echo.Context) error {
	rec, err := h.svc.ResolveShortCode(c.Request().Context(), c.Param("code"))
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.Redirect(http.StatusMovedPermanently, rec.LongURL)
}

// HandleURLHistory handles GET /api/url-history.
func (h *Handler) HandleURLHistory(c echo.Context) error {
	urls, err := h.svc.URLHistory(c.Request().Context())
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    urls,
	})
}

// HandleDeleteURL handles DELETE /api/delete-url/:id.
func (h *Handler) HandleDeleteURL(c echo.Context) error {
	if err := h.svc.DeleteURL(c.Request().Context(), c.Param("id")); err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "url deleted",
	})
}

// HandleHistory handles GET /api/history.
// Returns the five most recent texts and files, merged.
func (h *Handler) HandleHistory(c echo.Context) error {
	items, err := h.svc.RecentActivity(c.Request().Context())
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    items,
	})
}

// HandleDownload handles GET /api/download/:id.
// Serves the file as an attachment under its original filename.
func (h *Handler) HandleDownload(c echo.Context) error {
	filePath, filename, err := h.svc.Download(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.Attachment(filePath, filename)
}

// HandleClearHistory handles POST and DELETE /api/clear-history.
func (h *Handler) HandleClearHistory(c echo.Context) error {
	if err := h.svc.ClearAll(c.Request().Context()); err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "history cleared",
	})
}

// HandleHealth handles GET /health.
// Returns the health status of the server, including data file readability.
func (h *Handler) HandleHealth(c echo.Context) error {
	status := "healthy"
	storeStatus := "ok"

	if err := h.svc.Ping(c.Request().Context()); err != nil {
		status = "degraded"
		storeStatus = fmt.Sprintf("error: %v", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status": status,
		"store":  storeStatus,
	})
}

// HandleStats handles GET /api/stats.
// Returns aggregate server statistics.
func (h *Handler) HandleStats(c echo.Context) error {
	stats, err := h.svc.GetStats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false,
			"message": "failed to retrieve stats",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":            true,
		"texts":              stats.Texts,
		"files":              stats.Files,
		"urls":               stats.URLs,
		"total_clicks":       stats.TotalClicks,
		"storage_used_bytes": stats.StorageUsed,
		"storage_used_human": humanizeBytes(stats.StorageUsed),
	})
}

// mapServiceError translates service-layer errors into appropriate HTTP responses.
func mapServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "not found"})
	case errors.Is(err, service.ErrEmptyText),
		errors.Is(err, service.ErrInvalidURL),
		errors.Is(err, service.ErrFileRequired),
		errors.Is(err, service.ErrExtensionNotAllowed):
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
	case errors.Is(err, service.ErrFileTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{
			"success": false,
			"message": "file exceeds maximum allowed size",
		})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "internal server error"})
	}
}

// humanizeBytes formats a byte count into a human-readable string.
func humanizeBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
