package accounts

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/rhabibp/stremio-panel/core/apperr"
	"github.com/rhabibp/stremio-panel/core/models"
	"github.com/rhabibp/stremio-panel/core/stremio"
)

// Service manages panel accounts. All operations take the acting account and
// enforce reseller scoping: a reseller sees and mutates only accounts it
// created, an admin sees everything.
type Service struct {
	db         *gorm.DB
	api        stremio.API
	reconciler *stremio.Reconciler
	logger     *zap.Logger
}

// NewService creates the accounts service.
func NewService(db *gorm.DB, api stremio.API, reconciler *stremio.Reconciler, logger *zap.Logger) *Service {
	return &Service{db: db, api: api, reconciler: reconciler, logger: logger}
}

// scoped narrows a query to the accounts the actor may touch.
func scoped(q *gorm.DB, actor *models.Account) *gorm.DB {
	if actor.Role == models.RoleReseller {
		return q.Where("reseller_id = ?", actor.ID)
	}
	return q
}

// canAccess reports whether actor may touch account.
func canAccess(actor, account *models.Account) bool {
	if actor.Role != models.RoleReseller {
		return true
	}
	return account.ResellerID != nil && *account.ResellerID == actor.ID
}

// List returns all accounts visible to the actor.
func (s *Service) List(actor *models.Account) ([]models.Account, error) {
	var accounts []models.Account
	q := scoped(s.db, actor).Preload("Addons")
	if actor.Role == models.RoleAdmin {
		q = q.Preload("Reseller")
	}
	if err := q.Order("id").Find(&accounts).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return accounts, nil
}

// Get returns one account by id.
func (s *Service) Get(actor *models.Account, id uint) (*models.Account, error) {
	account, err := s.load(id, "Addons", "Reseller")
	if err != nil {
		return nil, err
	}
	if !canAccess(actor, account) {
		return nil, apperr.Forbidden("access denied")
	}
	return account, nil
}

// CreateInput carries the fields accepted on account creation.
type CreateInput struct {
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	Role      string     `json:"role"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// Create registers a new account. A reseller pays one credit per created
// user; the debit and the insert commit together.
func (s *Service) Create(actor *models.Account, input CreateInput) (*models.Account, error) {
	if input.Username == "" || input.Email == "" || input.Password == "" {
		return nil, apperr.Validation("username, email and password are required")
	}
	role := input.Role
	if role == "" {
		role = models.RoleUser
	}
	if !models.ValidRole(role) {
		return nil, apperr.Validation("unknown role %q", role)
	}
	if actor.Role == models.RoleReseller && role != models.RoleUser {
		return nil, apperr.Forbidden("resellers can only create users")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	account := &models.Account{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         role,
		ExpiresAt:    input.ExpiresAt,
		Active:       true,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if actor.Role == models.RoleReseller {
			debit := tx.Model(&models.Account{}).
				Where("id = ? AND credits > 0", actor.ID).
				UpdateColumn("credits", gorm.Expr("credits - 1"))
			if debit.Error != nil {
				return apperr.Internal(debit.Error)
			}
			if debit.RowsAffected == 0 {
				return apperr.Validation("insufficient credits")
			}
			account.ResellerID = &actor.ID
		}
		if err := tx.Create(account).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("user already exists")
			}
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account created",
		zap.Uint("id", account.ID),
		zap.String("username", account.Username),
		zap.String("role", account.Role),
		zap.Uint("actor", actor.ID))
	return account, nil
}

// UpdateInput carries the optional fields accepted on account update. Nil
// means leave unchanged.
type UpdateInput struct {
	Username  *string    `json:"username"`
	Email     *string    `json:"email"`
	Role      *string    `json:"role"`
	Active    *bool      `json:"active"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// Update mutates an account. Role changes are admin-only and are ignored for
// everyone else.
func (s *Service) Update(actor *models.Account, id uint, input UpdateInput) (*models.Account, error) {
	account, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !canAccess(actor, account) {
		return nil, apperr.Forbidden("access denied")
	}

	if input.Username != nil && *input.Username != "" {
		account.Username = *input.Username
	}
	if input.Email != nil && *input.Email != "" {
		account.Email = *input.Email
	}
	if input.Role != nil && actor.Role == models.RoleAdmin {
		if !models.ValidRole(*input.Role) {
			return nil, apperr.Validation("unknown role %q", *input.Role)
		}
		account.Role = *input.Role
	}
	if input.Active != nil {
		account.Active = *input.Active
	}
	if input.ExpiresAt != nil {
		account.ExpiresAt = input.ExpiresAt
	}

	if err := s.db.Save(account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("user already exists")
		}
		return nil, apperr.Internal(err)
	}
	return account, nil
}

// Delete removes an account and every addon membership pointing at it.
func (s *Service) Delete(actor *models.Account, id uint) error {
	account, err := s.load(id)
	if err != nil {
		return err
	}
	if !canAccess(actor, account) {
		return apperr.Forbidden("access denied")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(account).Association("Addons").Clear(); err != nil {
			return apperr.Internal(err)
		}
		if err := tx.Delete(account).Error; err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
}

// AssignAddon adds an addon to an account's set and, when the account holds a
// remote credential, pushes the addition to the remote collection. Remote
// failures do not roll back the local assignment.
func (s *Service) AssignAddon(ctx context.Context, actor *models.Account, userID, addonID uint) (*models.Account, error) {
	account, err := s.load(userID, "Addons")
	if err != nil {
		return nil, err
	}
	if !canAccess(actor, account) {
		return nil, apperr.Forbidden("access denied")
	}

	var addon models.Addon
	if err := s.db.First(&addon, addonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("addon not found")
		}
		return nil, apperr.Internal(err)
	}

	for _, assigned := range account.Addons {
		if assigned.ID == addon.ID {
			return nil, apperr.Validation("addon already assigned to user")
		}
	}
	if err := s.db.Model(account).Association("Addons").Append(&addon); err != nil {
		return nil, apperr.Internal(err)
	}

	if account.HasAuthKey() {
		if err := s.reconciler.AddOne(ctx, account.AuthKey(), addon.TransportURL); err != nil {
			s.logger.Warn("remote addon add failed",
				zap.Uint("account", account.ID),
				zap.String("transportUrl", addon.TransportURL),
				zap.Error(err))
		}
	}
	return s.load(userID, "Addons")
}

// RemoveAddon detaches an addon from an account and best-effort removes it
// from the remote collection.
func (s *Service) RemoveAddon(ctx context.Context, actor *models.Account, userID, addonID uint) (*models.Account, error) {
	account, err := s.load(userID, "Addons")
	if err != nil {
		return nil, err
	}
	if !canAccess(actor, account) {
		return nil, apperr.Forbidden("access denied")
	}

	var addon models.Addon
	if err := s.db.First(&addon, addonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("addon not found")
		}
		return nil, apperr.Internal(err)
	}

	if err := s.db.Model(account).Association("Addons").Delete(&addon); err != nil {
		return nil, apperr.Internal(err)
	}

	if account.HasAuthKey() {
		if err := s.reconciler.RemoveOne(ctx, account.AuthKey(), addon.TransportURL); err != nil {
			s.logger.Warn("remote addon removal failed",
				zap.Uint("account", account.ID),
				zap.String("transportUrl", addon.TransportURL),
				zap.Error(err))
		}
	}
	return s.load(userID, "Addons")
}

// SyncResult reports the outcome of a full collection sync.
type SyncResult struct {
	Added  int             `json:"added"`
	Total  int             `json:"total"`
	Addons []*models.Addon `json:"addons"`
}

// SyncAddons pushes the account's full addon set to the remote collection in
// one write.
func (s *Service) SyncAddons(ctx context.Context, actor *models.Account, id uint) (*SyncResult, error) {
	account, err := s.load(id, "Addons")
	if err != nil {
		return nil, err
	}
	if !canAccess(actor, account) {
		return nil, apperr.Forbidden("access denied")
	}
	if !account.HasAuthKey() {
		return nil, apperr.NotSynced("user is not synced with Stremio")
	}

	urls := make([]string, 0, len(account.Addons))
	for _, addon := range account.Addons {
		urls = append(urls, addon.TransportURL)
	}
	added, err := s.reconciler.SyncMany(ctx, account.AuthKey(), urls)
	if err != nil {
		return nil, err
	}
	return &SyncResult{Added: added, Total: len(urls), Addons: account.Addons}, nil
}

// Status describes the health of an account's remote link.
type Status struct {
	Synced        bool   `json:"synced"`
	Valid         bool   `json:"valid,omitempty"`
	StremioUserID string `json:"stremioUserId,omitempty"`
	StremioEmail  string `json:"stremioEmail,omitempty"`
	Message       string `json:"message"`
	Error         string `json:"error,omitempty"`
}

// StremioStatus checks whether the stored remote credential is still live. A
// failed remote check is reported in the status, not as an error.
func (s *Service) StremioStatus(ctx context.Context, actor *models.Account, id uint) (*Status, error) {
	account, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !canAccess(actor, account) {
		return nil, apperr.Forbidden("access denied")
	}
	if !account.HasAuthKey() {
		return &Status{Synced: false, Message: "User is not synced with Stremio"}, nil
	}

	remote, err := s.api.GetUser(ctx, account.AuthKey())
	if err != nil {
		return &Status{
			Synced:  true,
			Valid:   false,
			Message: "User is synced with Stremio but the connection might be invalid",
			Error:   err.Error(),
		}, nil
	}
	return &Status{
		Synced:        true,
		Valid:         true,
		StremioUserID: remote.ID,
		StremioEmail:  remote.Email,
		Message:       "User is synced with Stremio and the connection is valid",
	}, nil
}

func (s *Service) load(id uint, preloads ...string) (*models.Account, error) {
	q := s.db
	for _, p := range preloads {
		q = q.Preload(p)
	}
	var account models.Account
	if err := q.First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal(err)
	}
	return &account, nil
}
