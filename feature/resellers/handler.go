package resellers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rhabibp/stremio-panel/core/apperr"
	authmw "github.com/rhabibp/stremio-panel/core/middleware/auth"
	"github.com/rhabibp/stremio-panel/core/models"
)

// Handler handles HTTP requests for reseller management.
type Handler struct {
	service      *Service
	authenticate fiber.Handler
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, authenticate fiber.Handler) *Handler {
	return &Handler{service: service, authenticate: authenticate}
}

// RegisterRoutes registers the reseller routes. Mutations are admin-only;
// a reseller may read its own record, users and stats.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/resellers", h.authenticate)
	admin := authmw.RequireRoles(models.RoleAdmin)

	group.Get("/", admin, h.HandleList)
	group.Post("/", admin, h.HandleCreate)
	group.Get("/stats/me", authmw.RequireRoles(models.RoleAdmin, models.RoleReseller), h.HandleOwnStats)
	group.Get("/:id", h.HandleGet)
	group.Put("/:id", admin, h.HandleUpdate)
	group.Delete("/:id", admin, h.HandleDelete)
	group.Post("/:id/credits", admin, h.HandleAddCredits)
	group.Get("/:id/users", h.HandleUsers)
	group.Get("/:id/stats", h.HandleStats)
}

func paramID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid id")
	}
	return uint(id), nil
}

// selfOrAdmin lets an admin through, and a reseller only for its own id.
func selfOrAdmin(c *fiber.Ctx, id uint) error {
	current := authmw.Current(c)
	if current.Role == models.RoleAdmin {
		return nil
	}
	if current.Role == models.RoleReseller && current.ID == id {
		return nil
	}
	return apperr.Forbidden("access denied")
}

// HandleList lists all resellers.
// @Summary List resellers
// @Tags resellers
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Account
// @Router /api/resellers [get]
func (h *Handler) HandleList(c *fiber.Ctx) error {
	resellers, err := h.service.List()
	if err != nil {
		return err
	}
	return c.JSON(resellers)
}

// HandleGet returns a single reseller.
// @Summary Get reseller
// @Tags resellers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Reseller id"
// @Success 200 {object} models.Account
// @Router /api/resellers/{id} [get]
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := selfOrAdmin(c, id); err != nil {
		return err
	}
	reseller, err := h.service.Get(id)
	if err != nil {
		return err
	}
	return c.JSON(reseller)
}

// HandleCreate creates a reseller.
// @Summary Create reseller
// @Tags resellers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateInput true "Reseller details"
// @Success 201 {object} map[string]any
// @Router /api/resellers [post]
func (h *Handler) HandleCreate(c *fiber.Ctx) error {
	var input CreateInput
	if err := c.BodyParser(&input); err != nil {
		return apperr.Validation("invalid request body")
	}
	reseller, err := h.service.Create(input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Reseller created successfully",
		"reseller": reseller,
	})
}

// HandleUpdate mutates a reseller.
// @Summary Update reseller
// @Tags resellers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Reseller id"
// @Param body body UpdateInput true "Fields to change"
// @Success 200 {object} map[string]any
// @Router /api/resellers/{id} [put]
func (h *Handler) HandleUpdate(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var input UpdateInput
	if err := c.BodyParser(&input); err != nil {
		return apperr.Validation("invalid request body")
	}
	reseller, err := h.service.Update(id, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message":  "Reseller updated successfully",
		"reseller": reseller,
	})
}

// HandleDelete removes a reseller, detaching its users.
// @Summary Delete reseller
// @Tags resellers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Reseller id"
// @Success 200 {object} map[string]string
// @Router /api/resellers/{id} [delete]
func (h *Handler) HandleDelete(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Reseller deleted successfully"})
}

type addCreditsRequest struct {
	Credits int `json:"credits"`
}

// HandleAddCredits tops up a reseller's balance.
// @Summary Add credits
// @Tags resellers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Reseller id"
// @Param body body addCreditsRequest true "Amount"
// @Success 200 {object} map[string]any
// @Router /api/resellers/{id}/credits [post]
func (h *Handler) HandleAddCredits(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req addCreditsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	reseller, err := h.service.AddCredits(id, req.Credits)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message":  "Credits added successfully",
		"reseller": reseller,
	})
}

// HandleUsers lists the accounts a reseller created.
// @Summary Reseller users
// @Tags resellers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Reseller id"
// @Success 200 {array} models.Account
// @Router /api/resellers/{id}/users [get]
func (h *Handler) HandleUsers(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := selfOrAdmin(c, id); err != nil {
		return err
	}
	users, err := h.service.Users(id)
	if err != nil {
		return err
	}
	return c.JSON(users)
}

// HandleStats reports a reseller's user-base counts.
// @Summary Reseller stats
// @Tags resellers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Reseller id"
// @Success 200 {object} Report
// @Router /api/resellers/{id}/stats [get]
func (h *Handler) HandleStats(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := selfOrAdmin(c, id); err != nil {
		return err
	}
	report, err := h.service.Stats(id)
	if err != nil {
		return err
	}
	return c.JSON(report)
}

// HandleOwnStats reports the calling reseller's stats.
// @Summary Own stats
// @Tags resellers
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Report
// @Router /api/resellers/stats/me [get]
func (h *Handler) HandleOwnStats(c *fiber.Ctx) error {
	report, err := h.service.Stats(authmw.Current(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(report)
}
