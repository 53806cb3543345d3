package auth

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/rhabibp/stremio-panel/core/apperr"
	"github.com/rhabibp/stremio-panel/core/logger"
	authmw "github.com/rhabibp/stremio-panel/core/middleware/auth"
	"github.com/rhabibp/stremio-panel/core/models"
)

// Handler handles HTTP requests for authentication.
type Handler struct {
	service      *Service
	authenticate fiber.Handler
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, authenticate fiber.Handler) *Handler {
	return &Handler{service: service, authenticate: authenticate}
}

// RegisterRoutes registers the auth routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/auth")
	group.Post("/register", h.HandleRegister)
	group.Post("/login", h.HandleLogin)

	group.Get("/profile", h.authenticate, h.HandleProfile)
	group.Post("/stremio/login", h.authenticate, h.HandleLinkStremio)
	group.Post("/stremio/register", h.authenticate, h.HandleRegisterStremio)
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// identity is the minimal account projection returned with tokens.
type identity struct {
	ID            uint   `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	StremioSynced bool   `json:"stremioSynced"`
}

func project(a *models.Account) identity {
	return identity{
		ID:            a.ID,
		Username:      a.Username,
		Email:         a.Email,
		Role:          a.Role,
		StremioSynced: a.StremioSynced,
	}
}

// HandleRegister creates a new local account.
// @Summary Register
// @Description Register a new panel account and return an access token.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body registerRequest true "Account details"
// @Success 201 {object} map[string]any
// @Failure 409 {object} map[string]string
// @Router /api/auth/register [post]
func (h *Handler) HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	account, tok, err := h.service.Register(req.Username, req.Email, req.Password, req.Role)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"token":   tok,
		"user":    project(account),
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin authenticates a local account.
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param body body loginRequest true "Credentials"
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /api/auth/login [post]
func (h *Handler) HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	account, tok, err := h.service.Login(req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   tok,
		"user":    project(account),
	})
}

// HandleProfile returns the authenticated account.
// @Summary Current profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Account
// @Router /api/auth/profile [get]
func (h *Handler) HandleProfile(c *fiber.Ctx) error {
	current := authmw.Current(c)
	account, err := h.service.Profile(current.ID)
	if err != nil {
		return err
	}
	return c.JSON(account)
}

type stremioCredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLinkStremio binds an existing remote platform account.
// @Summary Link remote account
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body stremioCredentialsRequest true "Remote credentials"
// @Success 200 {object} map[string]any
// @Router /api/auth/stremio/login [post]
func (h *Handler) HandleLinkStremio(c *fiber.Ctx) error {
	var req stremioCredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	l := logger.WithRayID(h.service.logger, c)
	account, err := h.service.LinkStremio(c.Context(), authmw.Current(c), req.Email, req.Password)
	if err != nil {
		l.Error("remote link failed", zap.Error(err))
		return err
	}
	return c.JSON(fiber.Map{
		"message": "User synced with Stremio successfully",
		"user":    project(account),
	})
}

// HandleRegisterStremio creates and binds a new remote platform account.
// @Summary Register remote account
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body stremioCredentialsRequest true "Remote credentials"
// @Success 200 {object} map[string]any
// @Router /api/auth/stremio/register [post]
func (h *Handler) HandleRegisterStremio(c *fiber.Ctx) error {
	var req stremioCredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	l := logger.WithRayID(h.service.logger, c)
	account, err := h.service.RegisterStremio(c.Context(), authmw.Current(c), req.Email, req.Password)
	if err != nil {
		l.Error("remote registration failed", zap.Error(err))
		return err
	}
	return c.JSON(fiber.Map{
		"message": "User registered on Stremio successfully",
		"user":    project(account),
	})
}
