package resellers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Feature wires the reseller management service into the application.
type Feature struct {
	db           *gorm.DB
	authenticate fiber.Handler
	logger       *zap.Logger
}

// NewFeature creates the resellers feature.
func NewFeature(db *gorm.DB, authenticate fiber.Handler, logger *zap.Logger) *Feature {
	return &Feature{db: db, authenticate: authenticate, logger: logger}
}

func (f *Feature) Name() string { return "resellers" }

func (f *Feature) IsEnabled() bool { return true }

func (f *Feature) Load(app fiber.Router) error {
	service := NewService(f.db, f.logger)
	NewHandler(service, f.authenticate).RegisterRoutes(app)
	return nil
}
