package addons

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rhabibp/stremio-panel/core/apperr"
	"github.com/rhabibp/stremio-panel/core/models"
	"github.com/rhabibp/stremio-panel/core/stremio"
)

// Service manages addon registrations and keeps member collections on the
// remote platform in step with them.
type Service struct {
	db         *gorm.DB
	api        stremio.API
	reconciler *stremio.Reconciler
	logger     *zap.Logger
}

// NewService creates the addons service.
func NewService(db *gorm.DB, api stremio.API, reconciler *stremio.Reconciler, logger *zap.Logger) *Service {
	return &Service{db: db, api: api, reconciler: reconciler, logger: logger}
}

// canManage reports whether actor may mutate the addon.
func canManage(actor *models.Account, addon *models.Addon) bool {
	return actor.Role == models.RoleAdmin || addon.CreatorID == actor.ID
}

// List returns the addons visible to the actor: everything for admins, own
// plus public for resellers, assigned plus public for users.
func (s *Service) List(actor *models.Account) ([]models.Addon, error) {
	q := s.db.Preload("Creator").Preload("Users")
	switch actor.Role {
	case models.RoleReseller:
		q = q.Where("creator_id = ? OR public = ?", actor.ID, true)
	case models.RoleUser:
		assigned := s.db.Table("account_addons").
			Select("addon_id").
			Where("account_id = ?", actor.ID)
		q = q.Where("id IN (?) OR public = ?", assigned, true)
	}
	var addons []models.Addon
	if err := q.Order("id").Find(&addons).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return addons, nil
}

// Get returns one addon. Users only see addons assigned to them or public.
func (s *Service) Get(actor *models.Account, id uint) (*models.Addon, error) {
	addon, err := s.load(id, "Creator", "Users")
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleUser && !addon.Public {
		var count int64
		err := s.db.Table("account_addons").
			Where("account_id = ? AND addon_id = ?", actor.ID, addon.ID).
			Count(&count).Error
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if count == 0 {
			return nil, apperr.Forbidden("access denied")
		}
	}
	return addon, nil
}

// CreateInput carries the fields accepted on addon registration. Everything
// except the transport URL is optional; missing fields are filled from the
// fetched manifest.
type CreateInput struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Version      string         `json:"version"`
	TransportURL string         `json:"transportUrl"`
	AddonID      string         `json:"addonId"`
	Resources    []string       `json:"resources"`
	Types        []string       `json:"types"`
	Public       bool           `json:"public"`
	Config       models.JSONMap `json:"config"`
}

// Create registers an addon. The manifest is fetched and validated before
// anything is written; a duplicate transport URL is a conflict.
func (s *Service) Create(ctx context.Context, actor *models.Account, input CreateInput) (*models.Addon, error) {
	if input.TransportURL == "" {
		return nil, apperr.Validation("transport URL is required")
	}

	manifest, err := s.api.FetchManifest(ctx, input.TransportURL)
	if err != nil {
		return nil, err
	}

	addon := &models.Addon{
		Name:         input.Name,
		Description:  input.Description,
		Version:      input.Version,
		TransportURL: input.TransportURL,
		AddonID:      input.AddonID,
		Resources:    models.StringSlice(input.Resources),
		Types:        models.StringSlice(input.Types),
		CreatorID:    actor.ID,
		Public:       input.Public,
		Config:       input.Config,
		Active:       true,
	}
	fillFromManifest(addon, manifest)

	if err := s.db.Create(addon).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("addon with this URL already exists")
		}
		return nil, apperr.Internal(err)
	}

	s.logger.Info("addon created",
		zap.Uint("id", addon.ID),
		zap.String("transportUrl", addon.TransportURL),
		zap.Uint("creator", actor.ID))
	return addon, nil
}

// fillFromManifest completes unset addon fields from the manifest and marks
// the addon validated.
func fillFromManifest(addon *models.Addon, manifest *stremio.Manifest) {
	if addon.Name == "" {
		addon.Name = manifest.Name
	}
	if addon.Description == "" {
		addon.Description = manifest.Description
	}
	if addon.Description == "" {
		addon.Description = "No description provided"
	}
	if addon.Version == "" {
		addon.Version = manifest.Version
	}
	if addon.Version == "" {
		addon.Version = "1.0.0"
	}
	if addon.AddonID == "" {
		addon.AddonID = manifest.ID
	}
	if len(addon.Resources) == 0 {
		addon.Resources = models.StringSlice(manifest.ResourceNames())
	}
	if len(addon.Types) == 0 {
		addon.Types = models.StringSlice(manifest.Types)
	}
	addon.Manifest = models.RawJSON(manifest.Raw)
	addon.Validated = true
	now := time.Now()
	addon.LastValidatedAt = &now
}

// UpdateInput carries the optional fields accepted on addon update.
type UpdateInput struct {
	Name         *string        `json:"name"`
	Description  *string        `json:"description"`
	Version      *string        `json:"version"`
	TransportURL *string        `json:"transportUrl"`
	Resources    []string       `json:"resources"`
	Types        []string       `json:"types"`
	Public       *bool          `json:"public"`
	Active       *bool          `json:"active"`
	Config       models.JSONMap `json:"config"`
}

// Update mutates an addon. A changed transport URL is re-validated before the
// write, and every synced member is then pushed the new URL; one member's
// remote failure never aborts the rest.
func (s *Service) Update(ctx context.Context, actor *models.Account, id uint, input UpdateInput) (*models.Addon, error) {
	addon, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, addon) {
		return nil, apperr.Forbidden("access denied")
	}

	urlChanged := input.TransportURL != nil && *input.TransportURL != "" && *input.TransportURL != addon.TransportURL
	if urlChanged {
		manifest, err := s.api.FetchManifest(ctx, *input.TransportURL)
		if err != nil {
			return nil, err
		}
		addon.TransportURL = *input.TransportURL
		if input.Name == nil {
			addon.Name = ""
		}
		if input.Description == nil {
			addon.Description = ""
		}
		if input.Version == nil {
			addon.Version = ""
		}
		if input.Resources == nil {
			addon.Resources = nil
		}
		if input.Types == nil {
			addon.Types = nil
		}
		fillFromManifest(addon, manifest)
	}

	if input.Name != nil && *input.Name != "" {
		addon.Name = *input.Name
	}
	if input.Description != nil && *input.Description != "" {
		addon.Description = *input.Description
	}
	if input.Version != nil && *input.Version != "" {
		addon.Version = *input.Version
	}
	if input.Resources != nil {
		addon.Resources = models.StringSlice(input.Resources)
	}
	if input.Types != nil {
		addon.Types = models.StringSlice(input.Types)
	}
	if input.Public != nil {
		addon.Public = *input.Public
	}
	if input.Active != nil {
		addon.Active = *input.Active
	}
	if input.Config != nil {
		if addon.Config == nil {
			addon.Config = models.JSONMap{}
		}
		for k, v := range input.Config {
			addon.Config[k] = v
		}
	}

	if err := s.db.Save(addon).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("addon with this URL already exists")
		}
		return nil, apperr.Internal(err)
	}

	if urlChanged {
		members, err := s.syncedMembers(addon.ID)
		if err != nil {
			return nil, err
		}
		for _, member := range members {
			if err := s.reconciler.AddOne(ctx, member.AuthKey(), addon.TransportURL); err != nil {
				s.logger.Warn("member re-sync failed",
					zap.Uint("addon", addon.ID),
					zap.Uint("account", member.ID),
					zap.Error(err))
			}
		}
	}
	return addon, nil
}

// Delete removes an addon, detaching every member and best-effort removing
// the addon from each synced member's remote collection.
func (s *Service) Delete(ctx context.Context, actor *models.Account, id uint) error {
	addon, err := s.load(id)
	if err != nil {
		return err
	}
	if !canManage(actor, addon) {
		return apperr.Forbidden("access denied")
	}

	members, err := s.syncedMembers(addon.ID)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(addon).Association("Users").Clear(); err != nil {
			return apperr.Internal(err)
		}
		if err := tx.Delete(addon).Error; err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, member := range members {
		if err := s.reconciler.RemoveOne(ctx, member.AuthKey(), addon.TransportURL); err != nil {
			s.logger.Warn("remote removal failed",
				zap.Uint("addon", addon.ID),
				zap.Uint("account", member.ID),
				zap.Error(err))
		}
	}
	return nil
}

// Users lists the accounts assigned to an addon.
func (s *Service) Users(actor *models.Account, id uint) ([]models.Account, error) {
	addon, err := s.load(id)
	if err != nil {
		return nil, err
	}
	allowed := canManage(actor, addon) || (actor.Role == models.RoleReseller && addon.Public)
	if !allowed {
		return nil, apperr.Forbidden("access denied")
	}

	var users []models.Account
	err = s.db.Preload("Reseller").
		Joins("JOIN account_addons ON account_addons.account_id = accounts.id").
		Where("account_addons.addon_id = ?", addon.ID).
		Order("accounts.id").
		Find(&users).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

// SyncWithUsers pushes the addon to every synced member's remote collection.
// Failures are isolated per member and tallied in the report.
func (s *Service) SyncWithUsers(ctx context.Context, actor *models.Account, id uint) (*stremio.BatchReport, error) {
	addon, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, addon) {
		return nil, apperr.Forbidden("access denied")
	}

	members, err := s.syncedMembers(addon.ID)
	if err != nil {
		return nil, err
	}

	report := &stremio.BatchReport{}
	for _, member := range members {
		err := s.reconciler.AddOne(ctx, member.AuthKey(), addon.TransportURL)
		report.Record(member.Username, err)
		if err != nil {
			s.logger.Warn("member sync failed",
				zap.Uint("addon", addon.ID),
				zap.Uint("account", member.ID),
				zap.Error(err))
		}
	}
	return report, nil
}

// Validation is the result of a manifest probe.
type Validation struct {
	Valid    bool              `json:"valid"`
	Manifest *stremio.Manifest `json:"manifest,omitempty"`
	Message  string            `json:"message"`
	Error    string            `json:"error,omitempty"`
}

// Validate fetches and checks the manifest behind a transport URL without
// registering anything.
func (s *Service) Validate(ctx context.Context, transportURL string) (*Validation, error) {
	if transportURL == "" {
		return nil, apperr.Validation("transport URL is required")
	}
	manifest, err := s.api.FetchManifest(ctx, transportURL)
	if err != nil {
		return &Validation{Valid: false, Message: "Invalid addon", Error: err.Error()}, nil
	}
	return &Validation{Valid: true, Manifest: manifest, Message: "Addon validated successfully"}, nil
}

// OfficialAddon is one entry of the built-in catalog.
type OfficialAddon struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	TransportURL string   `json:"transportUrl"`
	AddonID      string   `json:"addonId"`
	Resources    []string `json:"resources"`
	Types        []string `json:"types"`
}

// officialCatalog is the built-in list of first-party addons offered for
// one-click import.
var officialCatalog = []OfficialAddon{
	{
		Name:         "Cinemeta",
		Description:  "The official addon for movie and series catalogs",
		TransportURL: "https://v3-cinemeta.strem.io/manifest.json",
		AddonID:      "com.linvo.cinemeta",
		Resources:    []string{"catalog", "meta", "addon_catalog"},
		Types:        []string{"movie", "series"},
	},
	{
		Name:         "Stremio Channels",
		Description:  "Watch YouTube channels within Stremio",
		TransportURL: "https://v3-channels.strem.io/manifest.json",
		AddonID:      "com.linvo.stremiochannels",
		Resources:    []string{"catalog", "meta"},
		Types:        []string{"channel"},
	},
	{
		Name:         "WatchHub",
		Description:  "Find where to watch movies and shows",
		TransportURL: "https://watchhub.strem.io/manifest.json",
		AddonID:      "org.stremio.watchhub",
		Resources:    []string{"stream"},
		Types:        []string{"movie", "series"},
	},
	{
		Name:         "OpenSubtitles",
		Description:  "The official addon for subtitles",
		TransportURL: "https://v3-opensubs.strem.io/manifest.json",
		AddonID:      "org.stremio.opensubtitles",
		Resources:    []string{"subtitles"},
		Types:        []string{"movie", "series"},
	},
}

// Official returns the built-in catalog.
func (s *Service) Official() []OfficialAddon {
	return officialCatalog
}

// ImportOfficial registers a catalog addon as a public registration, going
// through the same manifest validation as any other creation.
func (s *Service) ImportOfficial(ctx context.Context, actor *models.Account, transportURL string) (*models.Addon, error) {
	if transportURL == "" {
		return nil, apperr.Validation("transport URL is required")
	}
	return s.Create(ctx, actor, CreateInput{TransportURL: transportURL, Public: true})
}

// syncedMembers returns the addon's members that hold a remote credential,
// in membership insertion order.
func (s *Service) syncedMembers(addonID uint) ([]models.Account, error) {
	var members []models.Account
	err := s.db.
		Joins("JOIN account_addons ON account_addons.account_id = accounts.id").
		Where("account_addons.addon_id = ?", addonID).
		Where("stremio_synced = ? AND stremio_auth_key IS NOT NULL", true).
		Order("accounts.id").
		Find(&members).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return members, nil
}

func (s *Service) load(id uint, preloads ...string) (*models.Addon, error) {
	q := s.db
	for _, p := range preloads {
		q = q.Preload(p)
	}
	var addon models.Addon
	if err := q.First(&addon, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("addon not found")
		}
		return nil, apperr.Internal(err)
	}
	return &addon, nil
}
