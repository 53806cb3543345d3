package accounts

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rhabibp/stremio-panel/core/stremio"
)

// Feature wires the account management service into the application.
type Feature struct {
	db           *gorm.DB
	api          stremio.API
	reconciler   *stremio.Reconciler
	authenticate fiber.Handler
	logger       *zap.Logger
}

// NewFeature creates the accounts feature.
func NewFeature(db *gorm.DB, api stremio.API, reconciler *stremio.Reconciler, authenticate fiber.Handler, logger *zap.Logger) *Feature {
	return &Feature{db: db, api: api, reconciler: reconciler, authenticate: authenticate, logger: logger}
}

func (f *Feature) Name() string { return "accounts" }

func (f *Feature) IsEnabled() bool { return true }

func (f *Feature) Load(app fiber.Router) error {
	service := NewService(f.db, f.api, f.reconciler, f.logger)
	NewHandler(service, f.authenticate).RegisterRoutes(app)
	return nil
}
