package pinauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/rhabibp/stremio-panel/core/apperr"
	"github.com/rhabibp/stremio-panel/core/models"
	"github.com/rhabibp/stremio-panel/core/stremio"
	"github.com/rhabibp/stremio-panel/core/token"
)

const (
	defaultTTL = 10 * time.Minute

	// pinRetries bounds regeneration attempts on a pin collision.
	pinRetries = 5
)

// Service implements PIN-based out-of-band login: a waiting device shows a
// short-lived PIN, a second device that already holds a remote credential
// verifies it, and the waiting device collects a panel token.
type Service struct {
	db     *gorm.DB
	api    stremio.API
	issuer *token.Issuer
	hub    *Hub
	logger *zap.Logger
}

// NewService creates the pin auth service.
func NewService(db *gorm.DB, api stremio.API, issuer *token.Issuer, hub *Hub, logger *zap.Logger) *Service {
	return &Service{db: db, api: api, issuer: issuer, hub: hub, logger: logger}
}

// IssuedPin is the public projection of a freshly created session.
type IssuedPin struct {
	Pin       string    `json:"pin"`
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
	QRCode    string    `json:"qrCode"`
}

// Issue creates a pending session with a fresh 6-digit pin. A non-positive
// ttl falls back to ten minutes. Pin collisions are retried a bounded number
// of times.
func (s *Service) Issue(ttl time.Duration) (*IssuedPin, error) {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	expiresAt := time.Now().Add(ttl)

	var session *PinSession
	for attempt := 0; attempt < pinRetries; attempt++ {
		pin, err := randomPin()
		if err != nil {
			return nil, apperr.Internal(err)
		}
		candidate := &PinSession{
			Pin:       pin,
			SessionID: uuid.NewString(),
			Status:    StatusPending,
			ExpiresAt: expiresAt,
		}
		err = s.db.Create(candidate).Error
		if err == nil {
			session = candidate
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Internal(err)
		}
	}
	if session == nil {
		return nil, apperr.Internal(errors.New("could not allocate a unique pin"))
	}

	qr, err := qrPayload(session)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	s.logger.Debug("pin issued",
		zap.String("sessionId", session.SessionID),
		zap.Time("expiresAt", session.ExpiresAt))
	return &IssuedPin{
		Pin:       session.Pin,
		SessionID: session.SessionID,
		ExpiresAt: session.ExpiresAt,
		QRCode:    qr,
	}, nil
}

// qrPayload renders the session as a PNG QR data URL for the second device
// to scan.
func qrPayload(session *PinSession) (string, error) {
	data, err := json.Marshal(map[string]string{
		"pin":       session.Pin,
		"sessionId": session.SessionID,
		"expiresAt": session.ExpiresAt.Format(time.RFC3339),
	})
	if err != nil {
		return "", err
	}
	png, err := qrcode.Encode(string(data), qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// VerifyResult reports a successful verification back to the second device.
type VerifyResult struct {
	SessionID string `json:"sessionId"`
	AccountID uint   `json:"userId"`
}

// Verify consumes a pending pin on behalf of a remote credential. An unknown
// credential provisions a fresh account bound to it. The waiting device is
// notified through the hub.
func (s *Service) Verify(pin, authKey string, deviceInfo models.JSONMap) (*VerifyResult, error) {
	if pin == "" || authKey == "" {
		return nil, apperr.Validation("pin and stremioAuthKey are required")
	}

	var session PinSession
	err := s.db.Where("pin = ? AND status = ?", pin, StatusPending).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.InvalidOrExpiredPin()
		}
		return nil, apperr.Internal(err)
	}
	if session.Expired() {
		if err := s.db.Model(&session).Update("status", StatusExpired).Error; err != nil {
			return nil, apperr.Internal(err)
		}
		return nil, apperr.PinExpired()
	}

	account, err := s.resolveAccount(authKey)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"account_id":  account.ID,
		"device_info": deviceInfo,
		"status":      StatusVerified,
	}
	if err := s.db.Model(&session).Updates(updates).Error; err != nil {
		return nil, apperr.Internal(err)
	}

	s.hub.Publish(session.SessionID, Event{Type: "verified"})
	s.logger.Info("pin verified",
		zap.String("sessionId", session.SessionID),
		zap.Uint("account", account.ID))
	return &VerifyResult{SessionID: session.SessionID, AccountID: account.ID}, nil
}

// resolveAccount finds the account holding the given remote credential,
// provisioning one when none exists yet.
func (s *Service) resolveAccount(authKey string) (*models.Account, error) {
	var account models.Account
	err := s.db.Where("stremio_auth_key = ?", authKey).First(&account).Error
	if err == nil {
		return &account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Internal(err)
	}

	suffix, err := randomHex(4)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	secret, err := randomHex(16)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	username := "stremio_" + suffix
	provisioned := &models.Account{
		Username:       username,
		Email:          username + "@stremio.user",
		PasswordHash:   string(hash),
		Role:           models.RoleUser,
		StremioAuthKey: &authKey,
		StremioSynced:  true,
		Active:         true,
	}
	if err := s.db.Create(provisioned).Error; err != nil {
		return nil, apperr.Internal(err)
	}

	s.logger.Info("account provisioned from pin verification",
		zap.Uint("id", provisioned.ID),
		zap.String("username", provisioned.Username))
	return provisioned, nil
}

// StatusResponse is what the waiting device sees when polling a session.
type StatusResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Token   string          `json:"token,omitempty"`
	User    *models.Account `json:"user,omitempty"`
}

// CheckStatus reports a session's state. The first call that observes a
// verified session mints the panel token and consumes the session; replays
// see "used" and no token.
func (s *Service) CheckStatus(sessionID string) (*StatusResponse, error) {
	var session PinSession
	err := s.db.Preload("Account").Where("session_id = ?", sessionID).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.InvalidSession()
		}
		return nil, apperr.Internal(err)
	}

	if session.Status != StatusUsed && session.Expired() {
		if err := s.db.Model(&session).Update("status", StatusExpired).Error; err != nil {
			return nil, apperr.Internal(err)
		}
		return &StatusResponse{Status: StatusExpired, Message: "PIN has expired"}, nil
	}

	switch session.Status {
	case StatusPending:
		return &StatusResponse{Status: StatusPending, Message: "Waiting for PIN verification"}, nil
	case StatusVerified:
		if session.Account == nil {
			return nil, apperr.Internal(errors.New("verified session without account"))
		}
		tok, err := s.issuer.Mint(session.Account.ID, session.Account.Role)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		// Consuming the session before handing out the token keeps the
		// token single-issue even when polls race.
		consumed := s.db.Model(&session).
			Where("status = ?", StatusVerified).
			Update("status", StatusUsed)
		if consumed.Error != nil {
			return nil, apperr.Internal(consumed.Error)
		}
		if consumed.RowsAffected == 0 {
			return &StatusResponse{Status: StatusUsed, Message: "PIN status: used"}, nil
		}
		return &StatusResponse{
			Status:  StatusVerified,
			Message: "PIN verified successfully",
			Token:   tok,
			User:    session.Account,
		}, nil
	default:
		return &StatusResponse{Status: session.Status, Message: "PIN status: " + session.Status}, nil
	}
}

// LoginResult pairs a remote session with a freshly issued pin.
type LoginResult struct {
	AuthKey string             `json:"authKey"`
	User    stremio.RemoteUser `json:"user"`
	Pin     *IssuedPin         `json:"pin"`
}

// LoginStremio signs a second device in against the remote platform and
// issues a pin in the same round trip.
func (s *Service) LoginStremio(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}
	session, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	pin, err := s.Issue(defaultTTL)
	if err != nil {
		return nil, err
	}
	return &LoginResult{AuthKey: session.AuthKey, User: session.User, Pin: pin}, nil
}

// Stats summarizes the session table.
type Stats struct {
	Total    int64        `json:"total"`
	Pending  int64        `json:"pending"`
	Verified int64        `json:"verified"`
	Used     int64        `json:"used"`
	Expired  int64        `json:"expired"`
	Recent   []PinSession `json:"recentPins"`
}

// Stats counts sessions by state and returns the ten most recent.
func (s *Service) Stats() (*Stats, error) {
	var stats Stats
	counts := map[string]*int64{
		StatusPending:  &stats.Pending,
		StatusVerified: &stats.Verified,
		StatusUsed:     &stats.Used,
		StatusExpired:  &stats.Expired,
	}
	if err := s.db.Model(&PinSession{}).Count(&stats.Total).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	for status, dst := range counts {
		err := s.db.Model(&PinSession{}).Where("status = ?", status).Count(dst).Error
		if err != nil {
			return nil, apperr.Internal(err)
		}
	}
	err := s.db.Order("created_at DESC").Limit(10).Find(&stats.Recent).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &stats, nil
}

// Cleanup deletes sessions that are expired or past their deadline and
// returns how many went away.
func (s *Service) Cleanup() (int64, error) {
	result := s.db.Where("status = ? OR expires_at < ?", StatusExpired, time.Now()).Delete(&PinSession{})
	if result.Error != nil {
		return 0, apperr.Internal(result.Error)
	}
	if result.RowsAffected > 0 {
		s.logger.Info("expired pin sessions removed", zap.Int64("count", result.RowsAffected))
	}
	return result.RowsAffected, nil
}

// randomPin draws a uniform 6-digit pin.
func randomPin() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

func randomHex(bytes int) (string, error) {
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
