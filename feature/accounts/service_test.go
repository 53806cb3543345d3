package accounts

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rhabibp/stremio-panel/core/apperr"
	"github.com/rhabibp/stremio-panel/core/models"
	"github.com/rhabibp/stremio-panel/core/stremio"
	"github.com/rhabibp/stremio-panel/core/stremio/stremiotest"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Account{}, &models.Addon{}))
	return db
}

func newTestService(t *testing.T) (*Service, *stremiotest.FakeAPI) {
	t.Helper()
	api := stremiotest.New()
	db := newTestDB(t)
	return NewService(db, api, stremio.NewReconciler(api), zap.NewNop()), api
}

func seedAccount(t *testing.T, db *gorm.DB, account *models.Account) *models.Account {
	t.Helper()
	account.PasswordHash = "x"
	if account.Email == "" {
		account.Email = account.Username + "@example.com"
	}
	if account.Role == "" {
		account.Role = models.RoleUser
	}
	account.Active = true
	require.NoError(t, db.Create(account).Error)
	return account
}

func seedAddon(t *testing.T, db *gorm.DB, name, transportURL string) *models.Addon {
	t.Helper()
	addon := &models.Addon{Name: name, TransportURL: transportURL, AddonID: name, CreatorID: 1, Active: true}
	require.NoError(t, db.Create(addon).Error)
	return addon
}

func TestListScopedByReseller(t *testing.T) {
	service, _ := newTestService(t)
	admin := seedAccount(t, service.db, &models.Account{Username: "admin", Role: models.RoleAdmin})
	reseller := seedAccount(t, service.db, &models.Account{Username: "res", Role: models.RoleReseller})
	seedAccount(t, service.db, &models.Account{Username: "u1", ResellerID: &reseller.ID})
	seedAccount(t, service.db, &models.Account{Username: "u2"})

	all, err := service.List(admin)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	mine, err := service.List(reseller)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "u1", mine[0].Username)
}

func TestGetForeignUserForbidden(t *testing.T) {
	service, _ := newTestService(t)
	reseller := seedAccount(t, service.db, &models.Account{Username: "res", Role: models.RoleReseller})
	other := seedAccount(t, service.db, &models.Account{Username: "u2"})

	_, err := service.Get(reseller, other.ID)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	_, err = service.Get(reseller, 9999)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestCreateByResellerCostsCredit(t *testing.T) {
	service, _ := newTestService(t)
	reseller := seedAccount(t, service.db, &models.Account{Username: "res", Role: models.RoleReseller, Credits: 1})

	account, err := service.Create(reseller, CreateInput{Username: "u1", Email: "u1@example.com", Password: "pw"})
	require.NoError(t, err)
	require.NotNil(t, account.ResellerID)
	assert.Equal(t, reseller.ID, *account.ResellerID)

	var refreshed models.Account
	require.NoError(t, service.db.First(&refreshed, reseller.ID).Error)
	assert.Equal(t, 0, refreshed.Credits)

	_, err = service.Create(&refreshed, CreateInput{Username: "u2", Email: "u2@example.com", Password: "pw"})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	// The failed creation must not leave a row behind.
	var count int64
	require.NoError(t, service.db.Model(&models.Account{}).Where("username = ?", "u2").Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateByAdminIsFree(t *testing.T) {
	service, _ := newTestService(t)
	admin := seedAccount(t, service.db, &models.Account{Username: "admin", Role: models.RoleAdmin})

	account, err := service.Create(admin, CreateInput{Username: "u1", Email: "u1@example.com", Password: "pw", Role: models.RoleReseller})
	require.NoError(t, err)
	assert.Equal(t, models.RoleReseller, account.Role)
	assert.Nil(t, account.ResellerID)
}

func TestCreateDuplicate(t *testing.T) {
	service, _ := newTestService(t)
	admin := seedAccount(t, service.db, &models.Account{Username: "admin", Role: models.RoleAdmin})

	_, err := service.Create(admin, CreateInput{Username: "u1", Email: "u1@example.com", Password: "pw"})
	require.NoError(t, err)
	_, err = service.Create(admin, CreateInput{Username: "u1", Email: "other@example.com", Password: "pw"})
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
}

func TestResellerCannotCreateAdmin(t *testing.T) {
	service, _ := newTestService(t)
	reseller := seedAccount(t, service.db, &models.Account{Username: "res", Role: models.RoleReseller, Credits: 5})

	_, err := service.Create(reseller, CreateInput{Username: "u1", Email: "u1@example.com", Password: "pw", Role: models.RoleAdmin})
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
}

func TestUpdateRoleAdminOnly(t *testing.T) {
	service, _ := newTestService(t)
	admin := seedAccount(t, service.db, &models.Account{Username: "admin", Role: models.RoleAdmin})
	reseller := seedAccount(t, service.db, &models.Account{Username: "res", Role: models.RoleReseller})
	user := seedAccount(t, service.db, &models.Account{Username: "u1", ResellerID: &reseller.ID})

	role := models.RoleReseller
	updated, err := service.Update(reseller, user.ID, UpdateInput{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, updated.Role)

	updated, err = service.Update(admin, user.ID, UpdateInput{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, models.RoleReseller, updated.Role)
}

func TestUpdateDeactivate(t *testing.T) {
	service, _ := newTestService(t)
	admin := seedAccount(t, service.db, &models.Account{Username: "admin", Role: models.RoleAdmin})
	user := seedAccount(t, service.db, &models.Account{Username: "u1"})

	inactive := false
	updated, err := service.Update(admin, user.ID, UpdateInput{Active: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.Active)
}

func TestDeleteCascadesMembership(t *testing.T) {
	service, _ := newTestService(t)
	admin := seedAccount(t, service.db, &models.Account{Username: "admin", Role: models.RoleAdmin})
	user := seedAccount(t, service.db, &models.Account{Username: "u1"})
	addon := seedAddon(t, service.db, "cinemeta", "https://v3-cinemeta.strem.io/manifest.json")
	require.NoError(t, service.db.Model(user).Association("Addons").Append(addon))

	require.NoError(t, service.Delete(admin, user.ID))

	var members []models.Account
	require.NoError(t, service.db.Model(addon).Association("Users").Find(&members))
	assert.Empty(t, members)
}

func TestAssignAddonSyncsRemote(t *testing.T) {
	service, api := newTestService(t)
	admin := seedAccount(t, service.db, &models.Account{Username: "admin", Role: models.RoleAdmin})
	key := api.Seed("u1@example.com", "pw")
	user := seedAccount(t, service.db, &models.Account{Username: "u1", StremioAuthKey: &key, StremioSynced: true})
	addon := seedAddon(t, service.db, "cinemeta", "https://v3-cinemeta.strem.io/manifest.json")

	updated, err := service.AssignAddon(context.Background(), admin, user.ID, addon.ID)
	require.NoError(t, err)
	require.Len(t, updated.Addons, 1)

	collection := api.Collections[key]
	require.Len(t, collection, 1)
	assert.Equal(t, addon.TransportURL, collection[0].TransportURL)

	_, err = service.AssignAddon(context.Background(), admin, user.ID, addon.ID)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestAssignAddonRemoteFailureDoesNotRollBack(t *testing.T) {
	service, api := newTestService(t)
	admin := seedAccount(t, service.db, &models.Account{Username: "admin", Role: models.RoleAdmin})
	key := "dead-key"
	user := seedAccount(t, service.db, &models.Account{Username: "u1", StremioAuthKey: &key, StremioSynced: true})
	addon := seedAddon(t, service.db, "cinemeta", "https://v3-cinemeta.strem.io/manifest.json")
	api.SetErr = apperr.RemoteUnavailable(assert.AnError)

	updated, err := service.AssignAddon(context.Background(), admin, user.ID, addon.ID)
	require.NoError(t, err)
	assert.Len(t, updated.Addons, 1)
}

func TestRemoveAddon(t *testing.T) {
	service, api := newTestService(t)
	admin := seedAccount(t, service.db, &models.Account{Username: "admin", Role: models.RoleAdmin})
	key := api.Seed("u1@example.com", "pw")
	user := seedAccount(t, service.db, &models.Account{Username: "u1", StremioAuthKey: &key, StremioSynced: true})
	addon := seedAddon(t, service.db, "cinemeta", "https://v3-cinemeta.strem.io/manifest.json")
	require.NoError(t, service.db.Model(user).Association("Addons").Append(addon))
	api.Collections[key] = []stremio.AddonDescriptor{{TransportURL: addon.TransportURL, TransportName: "http"}}

	updated, err := service.RemoveAddon(context.Background(), admin, user.ID, addon.ID)
	require.NoError(t, err)
	assert.Empty(t, updated.Addons)
	assert.Empty(t, api.Collections[key])
}

func TestSyncAddons(t *testing.T) {
	service, api := newTestService(t)
	admin := seedAccount(t, service.db, &models.Account{Username: "admin", Role: models.RoleAdmin})
	key := api.Seed("u1@example.com", "pw")
	user := seedAccount(t, service.db, &models.Account{Username: "u1", StremioAuthKey: &key, StremioSynced: true})
	a1 := seedAddon(t, service.db, "cinemeta", "https://v3-cinemeta.strem.io/manifest.json")
	a2 := seedAddon(t, service.db, "opensubtitles", "https://opensubtitles.strem.io/manifest.json")
	require.NoError(t, service.db.Model(user).Association("Addons").Append(a1, a2))

	result, err := service.SyncAddons(context.Background(), admin, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Added)
	assert.Equal(t, 2, result.Total)
	assert.Len(t, api.Collections[key], 2)
	assert.Equal(t, 1, api.SetCalls)
}

func TestSyncAddonsNotSynced(t *testing.T) {
	service, _ := newTestService(t)
	admin := seedAccount(t, service.db, &models.Account{Username: "admin", Role: models.RoleAdmin})
	user := seedAccount(t, service.db, &models.Account{Username: "u1"})

	_, err := service.SyncAddons(context.Background(), admin, user.ID)
	assert.Equal(t, apperr.CodeNotSynced, apperr.CodeOf(err))
}

func TestStremioStatus(t *testing.T) {
	service, api := newTestService(t)
	admin := seedAccount(t, service.db, &models.Account{Username: "admin", Role: models.RoleAdmin})

	plain := seedAccount(t, service.db, &models.Account{Username: "plain"})
	status, err := service.StremioStatus(context.Background(), admin, plain.ID)
	require.NoError(t, err)
	assert.False(t, status.Synced)

	key := api.Seed("u1@example.com", "pw")
	linked := seedAccount(t, service.db, &models.Account{Username: "u1", StremioAuthKey: &key, StremioSynced: true})
	status, err = service.StremioStatus(context.Background(), admin, linked.ID)
	require.NoError(t, err)
	assert.True(t, status.Synced)
	assert.True(t, status.Valid)
	assert.Equal(t, "id-u1@example.com", status.StremioUserID)

	stale := "stale-key"
	broken := seedAccount(t, service.db, &models.Account{Username: "u2", StremioAuthKey: &stale, StremioSynced: true})
	status, err = service.StremioStatus(context.Background(), admin, broken.ID)
	require.NoError(t, err)
	assert.True(t, status.Synced)
	assert.False(t, status.Valid)
	assert.NotEmpty(t, status.Error)
}
