package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rhabibp/stremio-panel/core/apperr"
	authmw "github.com/rhabibp/stremio-panel/core/middleware/auth"
	"github.com/rhabibp/stremio-panel/core/stremio/stremiotest"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	db := newTestDB(t)
	issuer := newTestIssuer()
	service := NewService(db, stremiotest.New(), issuer, zap.NewNop())
	authenticate := authmw.New(authmw.Config{DB: db, Issuer: issuer})

	app := fiber.New(fiber.Config{ErrorHandler: apperr.ErrorHandler})
	api := app.Group("/api")
	NewHandler(service, authenticate).RegisterRoutes(api)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, bearer string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHandlerRegisterLoginProfile(t *testing.T) {
	app := newTestApp(t)

	resp := postJSON(t, app, "/api/auth/register", "", fiber.Map{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret123",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	tok, _ := body["token"].(string)
	require.NotEmpty(t, tok)

	resp = postJSON(t, app, "/api/auth/login", "", fiber.Map{
		"username": "alice",
		"password": "secret123",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	profileResp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, profileResp.StatusCode)
	profile := decodeBody(t, profileResp)
	assert.Equal(t, "alice", profile["username"])
	_, exposed := profile["passwordHash"]
	assert.False(t, exposed)
}

func TestHandlerProfileRequiresToken(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestHandlerLoginWrongPassword(t *testing.T) {
	app := newTestApp(t)

	resp := postJSON(t, app, "/api/auth/register", "", fiber.Map{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret123",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = postJSON(t, app, "/api/auth/login", "", fiber.Map{
		"username": "alice",
		"password": "wrong",
	})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, string(apperr.CodeUnauthorized), body["error"])
}
