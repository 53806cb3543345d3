package addons

import (
	"context"
	"encoding/json"
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

const cinemetaURL = "https://v3-cinemeta.strem.io/manifest.json"

func newTestService(t *testing.T) (*Service, *stremiotest.FakeAPI) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Account{}, &models.Addon{}))
	api := stremiotest.New()
	return NewService(db, api, stremio.NewReconciler(api), zap.NewNop()), api
}

func seedManifest(api *stremiotest.FakeAPI, url, id, name string) {
	raw, _ := json.Marshal(map[string]any{
		"id": id, "name": name, "version": "2.0.0",
		"description": "from manifest",
		"resources":   []string{"catalog", "meta"},
		"types":       []string{"movie", "series"},
	})
	var manifest stremio.Manifest
	_ = json.Unmarshal(raw, &manifest)
	manifest.Raw = raw
	api.Manifests[url] = &manifest
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

func TestCreateFillsFromManifest(t *testing.T) {
	service, api := newTestService(t)
	admin := seedAccount(t, service.db, &models.Account{Username: "admin", Role: models.RoleAdmin})
	seedManifest(api, cinemetaURL, "com.linvo.cinemeta", "Cinemeta")

	addon, err := service.Create(context.Background(), admin, CreateInput{TransportURL: cinemetaURL})
	require.NoError(t, err)
	assert.Equal(t, "Cinemeta", addon.Name)
	assert.Equal(t, "com.linvo.cinemeta", addon.AddonID)
	assert.Equal(t, "2.0.0", addon.Version)
	assert.Equal(t, models.StringSlice{"catalog", "meta"}, addon.Resources)
	assert.True(t, addon.Validated)
	require.NotNil(t, addon.LastValidatedAt)
	assert.NotEmpty(t, addon.Manifest)
}

func TestCreateKeepsExplicitFields(t *testing.T) {
	service, api := newTestService(t)
	admin := seedAccount(t, service.db, &models.Account{Username: "admin", Role: models.RoleAdmin})
	seedManifest(api, cinemetaURL, "com.linvo.cinemeta", "Cinemeta")

	addon, err := service.Create(context.Background(), admin, CreateInput{
		TransportURL: cinemetaURL,
		Name:         "My Catalog",
		Version:      "0.1.0",
	})
	require.NoError(t, err)
	assert.Equal(t, "My Catalog", addon.Name)
	assert.Equal(t, "0.1.0", addon.Version)
}

func TestCreateDuplicateURL(t *testing.T) {
	service, api := newTestService(t)
	admin := seedAccount(t, service.db, &models.Account{Username: "admin", Role: models.RoleAdmin})
	seedManifest(api, cinemetaURL, "com.linvo.cinemeta", "Cinemeta")

	_, err := service.Create(context.Background(), admin, CreateInput{TransportURL: cinemetaURL})
	require.NoError(t, err)
	_, err = service.Create(context.Background(), admin, CreateInput{TransportURL: cinemetaURL})
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
}

func TestCreateUnreachableManifest(t *testing.T) {
	service, _ := newTestService(t)
	admin := seedAccount(t, service.db, &models.Account{Username: "admin", Role: models.RoleAdmin})

	_, err := service.Create(context.Background(), admin, CreateInput{TransportURL: "https://nowhere.example/manifest.json"})
	assert.Equal(t, apperr.CodeInvalidManifest, apperr.CodeOf(err))

	var count int64
	require.NoError(t, service.db.Model(&models.Addon{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestListVisibility(t *testing.T) {
	service, api := newTestService(t)
	admin := seedAccount(t, service.db, &models.Account{Username: "admin", Role: models.RoleAdmin})
	reseller := seedAccount(t, service.db, &models.Account{Username: "res", Role: models.RoleReseller})
	user := seedAccount(t, service.db, &models.Account{Username: "u1"})

	urls := map[string]string{
		"admin-private": "https://one.example/manifest.json",
		"res-private":   "https://two.example/manifest.json",
		"public":        "https://three.example/manifest.json",
	}
	for name, url := range urls {
		seedManifest(api, url, name, name)
	}
	_, err := service.Create(context.Background(), admin, CreateInput{TransportURL: urls["admin-private"]})
	require.NoError(t, err)
	resAddon, err := service.Create(context.Background(), reseller, CreateInput{TransportURL: urls["res-private"]})
	require.NoError(t, err)
	pub, err := service.Create(context.Background(), admin, CreateInput{TransportURL: urls["public"], Public: true})
	require.NoError(t, err)
	require.NoError(t, service.db.Model(user).Association("Addons").Append(resAddon))

	all, err := service.List(admin)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	visible, err := service.List(reseller)
	require.NoError(t, err)
	assert.Len(t, visible, 2)

	mine, err := service.List(user)
	require.NoError(t, err)
	require.Len(t, mine, 2)

	// A private unassigned addon stays hidden from users.
	_, err = service.Get(user, pub.ID)
	require.NoError(t, err)
	_, err = service.Get(user, resAddon.ID)
	require.NoError(t, err)
	adminOnly := all[0]
	_, err = service.Get(user, adminOnly.ID)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
}

func TestUpdateChangedURLResyncsMembers(t *testing.T) {
	service, api := newTestService(t)
	admin := seedAccount(t, service.db, &models.Account{Username: "admin", Role: models.RoleAdmin})
	seedManifest(api, cinemetaURL, "com.linvo.cinemeta", "Cinemeta")
	newURL := "https://v4.example/manifest.json"
	seedManifest(api, newURL, "com.linvo.cinemeta", "Cinemeta v4")

	addon, err := service.Create(context.Background(), admin, CreateInput{TransportURL: cinemetaURL})
	require.NoError(t, err)

	key := api.Seed("u1@example.com", "pw")
	member := seedAccount(t, service.db, &models.Account{Username: "u1", StremioAuthKey: &key, StremioSynced: true})
	require.NoError(t, service.db.Model(member).Association("Addons").Append(addon))

	url := newURL
	updated, err := service.Update(context.Background(), admin, addon.ID, UpdateInput{TransportURL: &url})
	require.NoError(t, err)
	assert.Equal(t, newURL, updated.TransportURL)
	assert.Equal(t, "Cinemeta v4", updated.Name)

	collection := api.Collections[key]
	require.Len(t, collection, 1)
	assert.Equal(t, newURL, collection[0].TransportURL)
}

func TestUpdateForeignAddonForbidden(t *testing.T) {
	service, api := newTestService(t)
	admin := seedAccount(t, service.db, &models.Account{Username: "admin", Role: models.RoleAdmin})
	reseller := seedAccount(t, service.db, &models.Account{Username: "res", Role: models.RoleReseller})
	seedManifest(api, cinemetaURL, "com.linvo.cinemeta", "Cinemeta")

	addon, err := service.Create(context.Background(), admin, CreateInput{TransportURL: cinemetaURL})
	require.NoError(t, err)

	name := "renamed"
	_, err = service.Update(context.Background(), reseller, addon.ID, UpdateInput{Name: &name})
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
}

func TestDeleteCascadesAndRemovesRemote(t *testing.T) {
	service, api := newTestService(t)
	admin := seedAccount(t, service.db, &models.Account{Username: "admin", Role: models.RoleAdmin})
	seedManifest(api, cinemetaURL, "com.linvo.cinemeta", "Cinemeta")
	addon, err := service.Create(context.Background(), admin, CreateInput{TransportURL: cinemetaURL})
	require.NoError(t, err)

	key := api.Seed("u1@example.com", "pw")
	member := seedAccount(t, service.db, &models.Account{Username: "u1", StremioAuthKey: &key, StremioSynced: true})
	require.NoError(t, service.db.Model(member).Association("Addons").Append(addon))
	api.Collections[key] = []stremio.AddonDescriptor{{TransportURL: cinemetaURL, TransportName: "http"}}

	require.NoError(t, service.Delete(context.Background(), admin, addon.ID))

	var count int64
	require.NoError(t, service.db.Model(&models.Addon{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, api.Collections[key])

	var memberships int64
	require.NoError(t, service.db.Table("account_addons").Count(&memberships).Error)
	assert.Zero(t, memberships)
}

func TestSyncWithUsersIsolatesFailures(t *testing.T) {
	service, api := newTestService(t)
	admin := seedAccount(t, service.db, &models.Account{Username: "admin", Role: models.RoleAdmin})
	seedManifest(api, cinemetaURL, "com.linvo.cinemeta", "Cinemeta")
	addon, err := service.Create(context.Background(), admin, CreateInput{TransportURL: cinemetaURL})
	require.NoError(t, err)

	goodKey := api.Seed("good@example.com", "pw")
	badKey := "bad-key"
	api.BadKeys = map[string]error{badKey: apperr.RemoteUnavailable(assert.AnError)}

	good := seedAccount(t, service.db, &models.Account{Username: "good", StremioAuthKey: &goodKey, StremioSynced: true})
	bad := seedAccount(t, service.db, &models.Account{Username: "bad", StremioAuthKey: &badKey, StremioSynced: true})
	unsynced := seedAccount(t, service.db, &models.Account{Username: "plain"})
	for _, m := range []*models.Account{good, bad, unsynced} {
		require.NoError(t, service.db.Model(m).Association("Addons").Append(addon))
	}

	report, err := service.SyncWithUsers(context.Background(), admin, addon.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Successful)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "bad", report.Errors[0].Identity)

	require.Len(t, api.Collections[goodKey], 1)
}

func TestValidate(t *testing.T) {
	service, api := newTestService(t)
	seedManifest(api, cinemetaURL, "com.linvo.cinemeta", "Cinemeta")

	result, err := service.Validate(context.Background(), cinemetaURL)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	require.NotNil(t, result.Manifest)
	assert.Equal(t, "Cinemeta", result.Manifest.Name)

	result, err = service.Validate(context.Background(), "https://nowhere.example/manifest.json")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Error)

	_, err = service.Validate(context.Background(), "")
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestOfficialCatalogAndImport(t *testing.T) {
	service, api := newTestService(t)
	admin := seedAccount(t, service.db, &models.Account{Username: "admin", Role: models.RoleAdmin})

	catalog := service.Official()
	require.Len(t, catalog, 4)
	assert.Equal(t, "Cinemeta", catalog[0].Name)

	seedManifest(api, catalog[0].TransportURL, catalog[0].AddonID, catalog[0].Name)
	addon, err := service.ImportOfficial(context.Background(), admin, catalog[0].TransportURL)
	require.NoError(t, err)
	assert.True(t, addon.Public)
	assert.Equal(t, "com.linvo.cinemeta", addon.AddonID)
}
