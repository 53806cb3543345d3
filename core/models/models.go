package models

import (
	"time"
)

// Account roles. Resellers manage a subset of accounts and pay credits for
// user creation; admins see everything.
const (
	RoleAdmin    = "admin"
	RoleReseller = "reseller"
	RoleUser     = "user"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleReseller, RoleUser:
		return true
	}
	return false
}

// Account is a panel account. An account may be linked to a remote platform
// account via StremioAuthKey; only linked (synced) accounts take part in
// addon-collection reconciliation.
type Account struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Username     string `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email        string `gorm:"uniqueIndex;size:190;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         string `gorm:"size:16;not null;default:user;index" json:"role"`

	StremioAuthKey *string `gorm:"size:255" json:"-"`
	StremioUserID  *string `gorm:"size:64" json:"stremioUserId,omitempty"`
	StremioSynced  bool    `json:"stremioSynced"`

	Addons []*Addon `gorm:"many2many:account_addons;" json:"addons,omitempty"`

	ResellerID *uint    `gorm:"index" json:"resellerId,omitempty"`
	Reseller   *Account `gorm:"foreignKey:ResellerID" json:"reseller,omitempty"`

	// Credits is only meaningful for reseller accounts.
	Credits int `gorm:"not null;default:0" json:"credits"`

	Active    bool       `gorm:"not null;default:true" json:"active"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Expired reports whether the account has an expiry in the past.
func (a *Account) Expired() bool {
	return a.ExpiresAt != nil && a.ExpiresAt.Before(time.Now())
}

// HasAuthKey reports whether the account holds a usable remote credential.
func (a *Account) HasAuthKey() bool {
	return a.StremioSynced && a.StremioAuthKey != nil && *a.StremioAuthKey != ""
}

// AuthKey returns the remote credential, empty when absent.
func (a *Account) AuthKey() string {
	if a.StremioAuthKey == nil {
		return ""
	}
	return *a.StremioAuthKey
}

// Addon is a locally tracked registration of a remote addon manifest.
// TransportURL is the globally unique identifier.
type Addon struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Name        string `gorm:"size:190;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Version     string `gorm:"size:32;not null;default:1.0.0" json:"version"`

	TransportURL string `gorm:"uniqueIndex;size:512;not null" json:"transportUrl"`
	// AddonID is the upstream identifier declared in the manifest. Kept for
	// reference; TransportURL is the primary key of the domain.
	AddonID string `gorm:"size:190;not null;index" json:"addonId"`

	Resources StringSlice `gorm:"type:text" json:"resources"`
	Types     StringSlice `gorm:"type:text" json:"types"`

	CreatorID uint     `gorm:"not null;index" json:"creatorId"`
	Creator   *Account `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`

	Public bool `gorm:"not null;default:false;index" json:"public"`

	Users []*Account `gorm:"many2many:account_addons;" json:"users,omitempty"`

	Active bool    `gorm:"not null;default:true" json:"active"`
	Config JSONMap `gorm:"type:text" json:"config"`

	Manifest        RawJSON    `gorm:"type:text" json:"manifest,omitempty"`
	Validated       bool       `json:"validated"`
	LastValidatedAt *time.Time `json:"lastValidatedAt,omitempty"`
}
