package pinauth

import (
	"time"

	"github.com/rhabibp/stremio-panel/core/models"
)

// PIN session states. A session moves pending -> verified -> used, or to
// expired from either of the first two. Expiry is applied lazily on read.
const (
	StatusPending  = "pending"
	StatusVerified = "verified"
	StatusUsed     = "used"
	StatusExpired  = "expired"
)

// PinSession is one PIN login attempt. The pin is what the second device
// types; the session id is what the waiting device polls or subscribes on.
type PinSession struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Pin       string `gorm:"uniqueIndex;size:8;not null" json:"pin"`
	SessionID string `gorm:"uniqueIndex;size:64;not null" json:"sessionId"`

	AccountID *uint           `gorm:"index" json:"accountId,omitempty"`
	Account   *models.Account `gorm:"foreignKey:AccountID" json:"account,omitempty"`

	DeviceInfo models.JSONMap `gorm:"type:text" json:"deviceInfo"`

	Status    string    `gorm:"size:16;not null;default:pending;index" json:"status"`
	ExpiresAt time.Time `gorm:"not null" json:"expiresAt"`
}

// Expired reports whether the session's deadline has passed.
func (p *PinSession) Expired() bool {
	return time.Now().After(p.ExpiresAt)
}
