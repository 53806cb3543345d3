package addons

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rhabibp/stremio-panel/core/apperr"
	authmw "github.com/rhabibp/stremio-panel/core/middleware/auth"
	"github.com/rhabibp/stremio-panel/core/models"
)

// Handler handles HTTP requests for addon management.
type Handler struct {
	service      *Service
	authenticate fiber.Handler
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, authenticate fiber.Handler) *Handler {
	return &Handler{service: service, authenticate: authenticate}
}

// RegisterRoutes registers the addon routes. Reads are open to every
// authenticated account; mutations need admin or reseller.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/addons", h.authenticate)
	manage := authmw.RequireRoles(models.RoleAdmin, models.RoleReseller)

	group.Get("/", h.HandleList)
	group.Post("/", manage, h.HandleCreate)
	group.Post("/validate", manage, h.HandleValidate)
	group.Get("/official", h.HandleOfficial)
	group.Post("/official/import", manage, h.HandleImportOfficial)
	group.Get("/:id", h.HandleGet)
	group.Put("/:id", manage, h.HandleUpdate)
	group.Delete("/:id", manage, h.HandleDelete)
	group.Get("/:id/users", manage, h.HandleUsers)
	group.Post("/:id/sync", manage, h.HandleSync)
}

func paramID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid id")
	}
	return uint(id), nil
}

// HandleList lists the addons visible to the caller.
// @Summary List addons
// @Tags addons
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Addon
// @Router /api/addons [get]
func (h *Handler) HandleList(c *fiber.Ctx) error {
	addons, err := h.service.List(authmw.Current(c))
	if err != nil {
		return err
	}
	return c.JSON(addons)
}

// HandleGet returns a single addon.
// @Summary Get addon
// @Tags addons
// @Produce json
// @Security BearerAuth
// @Param id path int true "Addon id"
// @Success 200 {object} models.Addon
// @Router /api/addons/{id} [get]
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	addon, err := h.service.Get(authmw.Current(c), id)
	if err != nil {
		return err
	}
	return c.JSON(addon)
}

// HandleCreate registers an addon.
// @Summary Create addon
// @Tags addons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateInput true "Addon details"
// @Success 201 {object} map[string]any
// @Failure 409 {object} map[string]string
// @Router /api/addons [post]
func (h *Handler) HandleCreate(c *fiber.Ctx) error {
	var input CreateInput
	if err := c.BodyParser(&input); err != nil {
		return apperr.Validation("invalid request body")
	}
	addon, err := h.service.Create(c.Context(), authmw.Current(c), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Addon created successfully",
		"addon":   addon,
	})
}

// HandleUpdate mutates an addon.
// @Summary Update addon
// @Tags addons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Addon id"
// @Param body body UpdateInput true "Fields to change"
// @Success 200 {object} map[string]any
// @Router /api/addons/{id} [put]
func (h *Handler) HandleUpdate(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var input UpdateInput
	if err := c.BodyParser(&input); err != nil {
		return apperr.Validation("invalid request body")
	}
	addon, err := h.service.Update(c.Context(), authmw.Current(c), id, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Addon updated successfully",
		"addon":   addon,
	})
}

// HandleDelete removes an addon.
// @Summary Delete addon
// @Tags addons
// @Produce json
// @Security BearerAuth
// @Param id path int true "Addon id"
// @Success 200 {object} map[string]string
// @Router /api/addons/{id} [delete]
func (h *Handler) HandleDelete(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Context(), authmw.Current(c), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Addon deleted successfully"})
}

// HandleUsers lists the members of an addon.
// @Summary Addon users
// @Tags addons
// @Produce json
// @Security BearerAuth
// @Param id path int true "Addon id"
// @Success 200 {array} models.Account
// @Router /api/addons/{id}/users [get]
func (h *Handler) HandleUsers(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	users, err := h.service.Users(authmw.Current(c), id)
	if err != nil {
		return err
	}
	return c.JSON(users)
}

// HandleSync pushes the addon to every synced member.
// @Summary Sync addon
// @Tags addons
// @Produce json
// @Security BearerAuth
// @Param id path int true "Addon id"
// @Success 200 {object} map[string]any
// @Router /api/addons/{id}/sync [post]
func (h *Handler) HandleSync(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	report, err := h.service.SyncWithUsers(c.Context(), authmw.Current(c), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Addon sync process completed",
		"results": report,
	})
}

type validateRequest struct {
	TransportURL string `json:"transportUrl"`
}

// HandleValidate probes a manifest without registering it.
// @Summary Validate addon
// @Tags addons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body validateRequest true "Transport URL"
// @Success 200 {object} Validation
// @Router /api/addons/validate [post]
func (h *Handler) HandleValidate(c *fiber.Ctx) error {
	var req validateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	result, err := h.service.Validate(c.Context(), req.TransportURL)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// HandleOfficial returns the built-in catalog.
// @Summary Official addons
// @Tags addons
// @Produce json
// @Security BearerAuth
// @Success 200 {array} OfficialAddon
// @Router /api/addons/official [get]
func (h *Handler) HandleOfficial(c *fiber.Ctx) error {
	return c.JSON(h.service.Official())
}

// HandleImportOfficial registers a catalog addon as public.
// @Summary Import official addon
// @Tags addons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body validateRequest true "Transport URL"
// @Success 201 {object} map[string]any
// @Router /api/addons/official/import [post]
func (h *Handler) HandleImportOfficial(c *fiber.Ctx) error {
	var req validateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	addon, err := h.service.ImportOfficial(c.Context(), authmw.Current(c), req.TransportURL)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Official addon imported successfully",
		"addon":   addon,
	})
}
