package pinauth

import (
	"bufio"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/rhabibp/stremio-panel/core/apperr"
	authmw "github.com/rhabibp/stremio-panel/core/middleware/auth"
	"github.com/rhabibp/stremio-panel/core/models"
)

// Handler handles HTTP requests for PIN authentication.
type Handler struct {
	service      *Service
	hub          *Hub
	authenticate fiber.Handler
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, hub *Hub, authenticate fiber.Handler) *Handler {
	return &Handler{service: service, hub: hub, authenticate: authenticate}
}

// RegisterRoutes registers the pin routes. The login flow itself is public
// (the pin is the credential); stats and cleanup are admin-only.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/pin")

	group.Post("/generate", h.HandleGenerate)
	group.Post("/verify", h.HandleVerify)
	group.Get("/status/:sessionId", h.HandleStatus)
	group.Get("/subscribe/:sessionId", h.HandleSubscribe)
	group.Post("/login-stremio", h.HandleLoginStremio)

	group.Get("/stats", h.authenticate, authmw.RequireRoles(models.RoleAdmin), h.HandleStats)
	group.Post("/cleanup", h.authenticate, authmw.RequireRoles(models.RoleAdmin), h.HandleCleanup)
}

type generateRequest struct {
	ExpiryMinutes int `json:"expiryMinutes"`
}

// HandleGenerate creates a pending pin session.
// @Summary Generate PIN
// @Tags pin
// @Accept json
// @Produce json
// @Param body body generateRequest false "Optional expiry override"
// @Success 200 {object} map[string]any
// @Router /api/pin/generate [post]
func (h *Handler) HandleGenerate(c *fiber.Ctx) error {
	var req generateRequest
	// An empty body is fine here.
	_ = c.BodyParser(&req)

	pin, err := h.service.Issue(time.Duration(req.ExpiryMinutes) * time.Minute)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": pin})
}

type verifyRequest struct {
	Pin            string `json:"pin"`
	StremioAuthKey string `json:"stremioAuthKey"`
}

// HandleVerify consumes a pin on behalf of a remote credential.
// @Summary Verify PIN
// @Tags pin
// @Accept json
// @Produce json
// @Param body body verifyRequest true "Pin and credential"
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /api/pin/verify [post]
func (h *Handler) HandleVerify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	deviceInfo := models.JSONMap{
		"userAgent": c.Get(fiber.HeaderUserAgent),
		"ip":        c.IP(),
		"timestamp": time.Now().Format(time.RFC3339),
	}
	result, err := h.service.Verify(req.Pin, req.StremioAuthKey, deviceInfo)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "PIN verified successfully",
		"data":    result,
	})
}

// HandleStatus reports a session's state, minting the token on the first
// poll that sees it verified.
// @Summary PIN status
// @Tags pin
// @Produce json
// @Param sessionId path string true "Session id"
// @Success 200 {object} map[string]any
// @Router /api/pin/status/{sessionId} [get]
func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	status, err := h.service.CheckStatus(c.Params("sessionId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": status})
}

// HandleSubscribe streams session events over SSE as a push alternative to
// polling the status endpoint.
// @Summary Subscribe to PIN events
// @Tags pin
// @Produce text/event-stream
// @Param sessionId path string true "Session id"
// @Router /api/pin/subscribe/{sessionId} [get]
func (h *Handler) HandleSubscribe(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if sessionID == "" {
		return apperr.InvalidSession()
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	ch, unsub := h.hub.Subscribe(sessionID)
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer unsub()

		fmt.Fprintf(w, ": connected\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		keepalive := time.NewTicker(15 * time.Second)
		defer keepalive.Stop()
		for {
			select {
			case evt := <-ch:
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, evt.Data)
				if err := w.Flush(); err != nil {
					return
				}
				if evt.Type == "verified" {
					return
				}
			case <-keepalive.C:
				fmt.Fprintf(w, ": ping\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

type stremioLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLoginStremio signs in against the remote platform and issues a pin.
// @Summary Remote login with PIN
// @Tags pin
// @Accept json
// @Produce json
// @Param body body stremioLoginRequest true "Remote credentials"
// @Success 200 {object} map[string]any
// @Router /api/pin/login-stremio [post]
func (h *Handler) HandleLoginStremio(c *fiber.Ctx) error {
	var req stremioLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	result, err := h.service.LoginStremio(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Stremio login successful",
		"data":    result,
	})
}

// HandleStats summarizes the session table.
// @Summary PIN stats
// @Tags pin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Router /api/pin/stats [get]
func (h *Handler) HandleStats(c *fiber.Ctx) error {
	stats, err := h.service.Stats()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": stats})
}

// HandleCleanup deletes expired sessions.
// @Summary Clean up PINs
// @Tags pin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Router /api/pin/cleanup [post]
func (h *Handler) HandleCleanup(c *fiber.Ctx) error {
	deleted, err := h.service.Cleanup()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":      true,
		"message":      fmt.Sprintf("Cleaned up %d expired PINs", deleted),
		"deletedCount": deleted,
	})
}
