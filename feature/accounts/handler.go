package accounts

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rhabibp/stremio-panel/core/apperr"
	authmw "github.com/rhabibp/stremio-panel/core/middleware/auth"
	"github.com/rhabibp/stremio-panel/core/models"
)

// Handler handles HTTP requests for account management.
type Handler struct {
	service      *Service
	authenticate fiber.Handler
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, authenticate fiber.Handler) *Handler {
	return &Handler{service: service, authenticate: authenticate}
}

// RegisterRoutes registers the user management routes. Everything is gated to
// admins and resellers; the service applies the finer reseller scoping.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/users", h.authenticate, authmw.RequireRoles(models.RoleAdmin, models.RoleReseller))

	group.Get("/", h.HandleList)
	group.Post("/", h.HandleCreate)
	group.Post("/assign-addon", h.HandleAssignAddon)
	group.Get("/:id", h.HandleGet)
	group.Put("/:id", h.HandleUpdate)
	group.Delete("/:id", h.HandleDelete)
	group.Delete("/:userId/addons/:addonId", h.HandleRemoveAddon)
	group.Post("/:id/sync-addons", h.HandleSyncAddons)
	group.Get("/:id/stremio-status", h.HandleStremioStatus)
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid %s", name)
	}
	return uint(id), nil
}

// HandleList lists the accounts visible to the caller.
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Account
// @Router /api/users [get]
func (h *Handler) HandleList(c *fiber.Ctx) error {
	accounts, err := h.service.List(authmw.Current(c))
	if err != nil {
		return err
	}
	return c.JSON(accounts)
}

// HandleGet returns a single account.
// @Summary Get user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User id"
// @Success 200 {object} models.Account
// @Router /api/users/{id} [get]
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	account, err := h.service.Get(authmw.Current(c), id)
	if err != nil {
		return err
	}
	return c.JSON(account)
}

// HandleCreate creates an account.
// @Summary Create user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateInput true "Account details"
// @Success 201 {object} map[string]any
// @Router /api/users [post]
func (h *Handler) HandleCreate(c *fiber.Ctx) error {
	var input CreateInput
	if err := c.BodyParser(&input); err != nil {
		return apperr.Validation("invalid request body")
	}
	account, err := h.service.Create(authmw.Current(c), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully",
		"user":    account,
	})
}

// HandleUpdate mutates an account.
// @Summary Update user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User id"
// @Param body body UpdateInput true "Fields to change"
// @Success 200 {object} map[string]any
// @Router /api/users/{id} [put]
func (h *Handler) HandleUpdate(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var input UpdateInput
	if err := c.BodyParser(&input); err != nil {
		return apperr.Validation("invalid request body")
	}
	account, err := h.service.Update(authmw.Current(c), id, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "User updated successfully",
		"user":    account,
	})
}

// HandleDelete removes an account and its addon memberships.
// @Summary Delete user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User id"
// @Success 200 {object} map[string]string
// @Router /api/users/{id} [delete]
func (h *Handler) HandleDelete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Delete(authmw.Current(c), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "User deleted successfully"})
}

type assignAddonRequest struct {
	UserID  uint `json:"userId"`
	AddonID uint `json:"addonId"`
}

// HandleAssignAddon attaches an addon to an account.
// @Summary Assign addon
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body assignAddonRequest true "Assignment"
// @Success 200 {object} map[string]any
// @Router /api/users/assign-addon [post]
func (h *Handler) HandleAssignAddon(c *fiber.Ctx) error {
	var req assignAddonRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	account, err := h.service.AssignAddon(c.Context(), authmw.Current(c), req.UserID, req.AddonID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Addon assigned to user successfully",
		"user":    account,
	})
}

// HandleRemoveAddon detaches an addon from an account.
// @Summary Remove addon
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User id"
// @Param addonId path int true "Addon id"
// @Success 200 {object} map[string]any
// @Router /api/users/{userId}/addons/{addonId} [delete]
func (h *Handler) HandleRemoveAddon(c *fiber.Ctx) error {
	userID, err := paramID(c, "userId")
	if err != nil {
		return err
	}
	addonID, err := paramID(c, "addonId")
	if err != nil {
		return err
	}
	account, err := h.service.RemoveAddon(c.Context(), authmw.Current(c), userID, addonID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Addon removed from user successfully",
		"user":    account,
	})
}

// HandleSyncAddons pushes the account's full addon set remotely.
// @Summary Sync addons
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User id"
// @Success 200 {object} map[string]any
// @Router /api/users/{id}/sync-addons [post]
func (h *Handler) HandleSyncAddons(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	result, err := h.service.SyncAddons(c.Context(), authmw.Current(c), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Addons synced with Stremio successfully",
		"result":  result,
	})
}

// HandleStremioStatus reports the health of the account's remote link.
// @Summary Remote link status
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User id"
// @Success 200 {object} Status
// @Router /api/users/{id}/stremio-status [get]
func (h *Handler) HandleStremioStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	status, err := h.service.StremioStatus(c.Context(), authmw.Current(c), id)
	if err != nil {
		return err
	}
	return c.JSON(status)
}
