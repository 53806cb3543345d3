package resellers

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/rhabibp/stremio-panel/core/apperr"
	"github.com/rhabibp/stremio-panel/core/models"
)

// Service manages reseller accounts and their credit balances.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates the resellers service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// List returns every reseller account.
func (s *Service) List() ([]models.Account, error) {
	var resellers []models.Account
	err := s.db.Where("role = ?", models.RoleReseller).Preload("Addons").Order("id").Find(&resellers).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return resellers, nil
}

// Get returns one reseller by id.
func (s *Service) Get(id uint) (*models.Account, error) {
	return s.load(id, "Addons")
}

// CreateInput carries the fields accepted on reseller creation.
type CreateInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Credits  int    `json:"credits"`
}

// Create registers a reseller account with an opening credit balance.
func (s *Service) Create(input CreateInput) (*models.Account, error) {
	if input.Username == "" || input.Email == "" || input.Password == "" {
		return nil, apperr.Validation("username, email and password are required")
	}
	if input.Credits < 0 {
		return nil, apperr.Validation("credits must not be negative")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	reseller := &models.Account{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         models.RoleReseller,
		Credits:      input.Credits,
		Active:       true,
	}
	if err := s.db.Create(reseller).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("user already exists")
		}
		return nil, apperr.Internal(err)
	}

	s.logger.Info("reseller created",
		zap.Uint("id", reseller.ID),
		zap.String("username", reseller.Username),
		zap.Int("credits", reseller.Credits))
	return reseller, nil
}

// UpdateInput carries the optional fields accepted on reseller update.
type UpdateInput struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Credits  *int    `json:"credits"`
	Active   *bool   `json:"active"`
}

// Update mutates a reseller. Credits here is an absolute overwrite; use
// AddCredits for top-ups.
func (s *Service) Update(id uint, input UpdateInput) (*models.Account, error) {
	reseller, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if input.Username != nil && *input.Username != "" {
		reseller.Username = *input.Username
	}
	if input.Email != nil && *input.Email != "" {
		reseller.Email = *input.Email
	}
	if input.Credits != nil {
		if *input.Credits < 0 {
			return nil, apperr.Validation("credits must not be negative")
		}
		reseller.Credits = *input.Credits
	}
	if input.Active != nil {
		reseller.Active = *input.Active
	}
	if err := s.db.Save(reseller).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("user already exists")
		}
		return nil, apperr.Internal(err)
	}
	return reseller, nil
}

// Delete removes a reseller. Users it created are detached, not deleted.
func (s *Service) Delete(id uint) error {
	reseller, err := s.load(id)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Account{}).
			Where("reseller_id = ?", reseller.ID).
			Update("reseller_id", nil).Error
		if err != nil {
			return apperr.Internal(err)
		}
		if err := tx.Delete(reseller).Error; err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
}

// AddCredits tops up a reseller's balance. The amount must be positive.
func (s *Service) AddCredits(id uint, amount int) (*models.Account, error) {
	if amount <= 0 {
		return nil, apperr.Validation("invalid credits amount")
	}
	reseller, err := s.load(id)
	if err != nil {
		return nil, err
	}
	err = s.db.Model(reseller).UpdateColumn("credits", gorm.Expr("credits + ?", amount)).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}

	s.logger.Info("credits added",
		zap.Uint("reseller", reseller.ID),
		zap.Int("amount", amount))
	return s.load(id)
}

// Users lists the accounts created by a reseller.
func (s *Service) Users(id uint) ([]models.Account, error) {
	if _, err := s.load(id); err != nil {
		return nil, err
	}
	var users []models.Account
	err := s.db.Where("reseller_id = ?", id).Preload("Addons").Order("id").Find(&users).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

// Stats summarizes a reseller's user base.
type Stats struct {
	TotalUsers   int64 `json:"totalUsers"`
	ActiveUsers  int64 `json:"activeUsers"`
	ExpiredUsers int64 `json:"expiredUsers"`
	SyncedUsers  int64 `json:"syncedUsers"`
	NewUsers     int64 `json:"newUsers"`
}

// Report is the stats response with the reseller's identity attached.
type Report struct {
	ResellerID uint   `json:"resellerId"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Credits    int    `json:"credits"`
	Stats      Stats  `json:"stats"`
}

// Stats computes user counts for a reseller: totals, active (not expired),
// expired, synced with the remote platform, and created in the last 30 days.
func (s *Service) Stats(id uint) (*Report, error) {
	reseller, err := s.load(id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	base := func() *gorm.DB {
		return s.db.Model(&models.Account{}).Where("reseller_id = ?", id)
	}

	var stats Stats
	if err := base().Count(&stats.TotalUsers).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	err = base().Where("active = ?", true).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Count(&stats.ActiveUsers).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if err := base().Where("expires_at <= ?", now).Count(&stats.ExpiredUsers).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	if err := base().Where("stremio_synced = ?", true).Count(&stats.SyncedUsers).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	err = base().Where("created_at >= ?", now.AddDate(0, 0, -30)).Count(&stats.NewUsers).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return &Report{
		ResellerID: reseller.ID,
		Username:   reseller.Username,
		Email:      reseller.Email,
		Credits:    reseller.Credits,
		Stats:      stats,
	}, nil
}

func (s *Service) load(id uint, preloads ...string) (*models.Account, error) {
	q := s.db.Where("role = ?", models.RoleReseller)
	for _, p := range preloads {
		q = q.Preload(p)
	}
	var reseller models.Account
	if err := q.First(&reseller, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("reseller not found")
		}
		return nil, apperr.Internal(err)
	}
	return &reseller, nil
}
