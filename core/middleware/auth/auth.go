package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/rhabibp/stremio-panel/core/apperr"
	"github.com/rhabibp/stremio-panel/core/models"
	"github.com/rhabibp/stremio-panel/core/token"
)

// Config holds the dependencies of the authentication middleware.
type Config struct {
	DB     *gorm.DB
	Issuer *token.Issuer
}

const localsKey = "current_account"

// New returns a middleware that authenticates requests with a Bearer token
// and stores the resolved account in the context locals.
func New(cfg Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return apperr.Unauthorized("no token, authorization denied")
		}

		claims, err := cfg.Issuer.Parse(parts[1])
		if err != nil {
			return err
		}
		id, ok := claims.AccountID()
		if !ok {
			return apperr.Unauthorized("token is not valid")
		}

		var account models.Account
		if err := cfg.DB.First(&account, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Unauthorized("account not found")
			}
			return apperr.Internal(err)
		}

		c.Locals(localsKey, &account)
		return c.Next()
	}
}

// RequireRoles returns a middleware that rejects accounts whose role is not
// in the allowed set. It must run after New.
func RequireRoles(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		account := Current(c)
		if account == nil {
			return apperr.Unauthorized("no token, authorization denied")
		}
		if _, ok := allowed[account.Role]; !ok {
			return apperr.Forbidden("access denied")
		}
		return c.Next()
	}
}

// Current returns the authenticated account, or nil outside an
// authenticated request.
func Current(c *fiber.Ctx) *models.Account {
	account, _ := c.Locals(localsKey).(*models.Account)
	return account
}
