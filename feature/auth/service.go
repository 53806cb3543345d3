package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/rhabibp/stremio-panel/core/apperr"
	"github.com/rhabibp/stremio-panel/core/models"
	"github.com/rhabibp/stremio-panel/core/stremio"
	"github.com/rhabibp/stremio-panel/core/token"
)

// Service implements registration, login, and remote-account linking.
type Service struct {
	db     *gorm.DB
	api    stremio.API
	issuer *token.Issuer
	logger *zap.Logger
}

// NewService creates a new auth service.
func NewService(db *gorm.DB, api stremio.API, issuer *token.Issuer, logger *zap.Logger) *Service {
	return &Service{db: db, api: api, issuer: issuer, logger: logger}
}

// HashPassword produces a bcrypt hash of the given secret.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperr.Internal(err)
	}
	return string(hash), nil
}

// Register creates a local account and returns it with a minted token.
func (s *Service) Register(username, email, password, role string) (*models.Account, string, error) {
	if username == "" || email == "" || password == "" {
		return nil, "", apperr.Validation("username, email and password are required")
	}
	if role == "" {
		role = models.RoleUser
	}
	if !models.ValidRole(role) {
		return nil, "", apperr.Validation("invalid role %q", role)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	account := &models.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := s.db.Create(account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", apperr.Conflict("user already exists")
		}
		return nil, "", apperr.Internal(err)
	}

	tok, err := s.issuer.Mint(account.ID, account.Role)
	if err != nil {
		return nil, "", apperr.Internal(err)
	}
	return account, tok, nil
}

// Login authenticates a local account by username and password. Inactive
// and expired accounts are rejected.
func (s *Service) Login(username, password string) (*models.Account, string, error) {
	var account models.Account
	if err := s.db.Where("username = ?", username).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", apperr.Unauthorized("invalid credentials")
		}
		return nil, "", apperr.Internal(err)
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, "", apperr.Unauthorized("invalid credentials")
	}
	if !account.Active {
		return nil, "", apperr.Unauthorized("account is deactivated")
	}
	if account.Expired() {
		return nil, "", apperr.Unauthorized("account has expired")
	}

	tok, err := s.issuer.Mint(account.ID, account.Role)
	if err != nil {
		return nil, "", apperr.Internal(err)
	}
	return &account, tok, nil
}

// Profile loads the account for an id.
func (s *Service) Profile(id uint) (*models.Account, error) {
	var account models.Account
	if err := s.db.Preload("Addons").First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal(err)
	}
	return &account, nil
}

// LinkStremio logs the account into the remote platform and stores the
// credential, marking the account synced.
func (s *Service) LinkStremio(ctx context.Context, account *models.Account, email, password string) (*models.Account, error) {
	session, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.bindSession(account, session)
}

// RegisterStremio creates a remote platform account first, then links it.
func (s *Service) RegisterStremio(ctx context.Context, account *models.Account, email, password string) (*models.Account, error) {
	session, err := s.api.Register(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.bindSession(account, session)
}

func (s *Service) bindSession(account *models.Account, session *stremio.Session) (*models.Account, error) {
	updates := map[string]any{
		"stremio_auth_key": session.AuthKey,
		"stremio_user_id":  session.User.ID,
		"stremio_synced":   true,
	}
	if err := s.db.Model(account).Updates(updates).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	s.logger.Info("account linked to remote platform",
		zap.Uint("account_id", account.ID),
		zap.String("remote_user_id", session.User.ID),
	)
	account.StremioAuthKey = &session.AuthKey
	account.StremioUserID = &session.User.ID
	account.StremioSynced = true
	return account, nil
}
