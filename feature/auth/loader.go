package auth

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rhabibp/stremio-panel/core/stremio"
	"github.com/rhabibp/stremio-panel/core/token"
)

// Feature wires the auth service into the application.
type Feature struct {
	db           *gorm.DB
	api          stremio.API
	issuer       *token.Issuer
	authenticate fiber.Handler
	logger       *zap.Logger
}

// NewFeature creates the auth feature.
func NewFeature(db *gorm.DB, api stremio.API, issuer *token.Issuer, authenticate fiber.Handler, logger *zap.Logger) *Feature {
	return &Feature{db: db, api: api, issuer: issuer, authenticate: authenticate, logger: logger}
}

func (f *Feature) Name() string { return "auth" }

func (f *Feature) IsEnabled() bool { return true }

func (f *Feature) Load(app fiber.Router) error {
	service := NewService(f.db, f.api, f.issuer, f.logger)
	NewHandler(service, f.authenticate).RegisterRoutes(app)
	return nil
}
