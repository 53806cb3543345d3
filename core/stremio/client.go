package stremio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/rhabibp/stremio-panel/core/apperr"
)

// API is the remote account service surface used by the rest of the panel.
// Implementations must not retry: retry policy belongs to callers.
type API interface {
	Login(ctx context.Context, email, password string) (*Session, error)
	Register(ctx context.Context, email, password string) (*Session, error)
	GetUser(ctx context.Context, authKey string) (*RemoteUser, error)
	GetAddonCollection(ctx context.Context, authKey string) ([]AddonDescriptor, error)
	SetAddonCollection(ctx context.Context, authKey string, addons []AddonDescriptor) error
	FetchManifest(ctx context.Context, transportURL string) (*Manifest, error)
}

// Client talks JSON to the remote account service. Every authenticated call
// threads the authKey credential through the request body.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Client from configuration.
func NewClient(cfg Config) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

// apiEnvelope is the remote service's response wrapper: either a result or
// an error payload.
type apiEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// post sends a JSON body to an API path and decodes the result into out.
func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return apperr.RemoteUnavailable(err)
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return apperr.RemoteUnavailable(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return apperr.RemoteUnavailable(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.RemoteUnavailable(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.RemoteUnavailable(err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return apperr.RemoteUnavailable(fmt.Errorf("malformed response: %w", err))
	}

	// The remote side reports application errors in the body regardless of
	// HTTP status.
	if len(envelope.Error) > 0 && string(envelope.Error) != "null" {
		return apperr.RemoteRejected(remoteMessage(envelope.Error))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperr.RemoteUnavailable(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return apperr.RemoteUnavailable(fmt.Errorf("malformed result: %w", err))
		}
	}
	return nil
}

// remoteMessage extracts a human-readable message from the remote error
// payload, which is either a string or an object with a message field.
func remoteMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(raw)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates against the remote account service.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	if err := c.post(ctx, "/api/login", credentialsRequest{Email: email, Password: password}, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Register creates a new remote account.
func (c *Client) Register(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	if err := c.post(ctx, "/api/register", credentialsRequest{Email: email, Password: password}, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetUser fetches the remote profile for an auth key.
func (c *Client) GetUser(ctx context.Context, authKey string) (*RemoteUser, error) {
	var user RemoteUser
	body := map[string]any{"authKey": authKey}
	if err := c.post(ctx, "/api/getUser", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetAddonCollection fetches the user's addon collection.
func (c *Client) GetAddonCollection(ctx context.Context, authKey string) ([]AddonDescriptor, error) {
	var result struct {
		Addons []AddonDescriptor `json:"addons"`
	}
	body := map[string]any{"authKey": authKey, "update": true}
	if err := c.post(ctx, "/api/addonCollectionGet", body, &result); err != nil {
		return nil, err
	}
	return result.Addons, nil
}

// SetAddonCollection replaces the user's addon collection wholesale.
func (c *Client) SetAddonCollection(ctx context.Context, authKey string, addons []AddonDescriptor) error {
	body := map[string]any{"authKey": authKey, "addons": addons}
	return c.post(ctx, "/api/addonCollectionSet", body, nil)
}

// FetchManifest performs a direct unauthenticated fetch of an addon
// manifest. A document without an id or a name fails with InvalidManifest.
func (c *Client) FetchManifest(ctx context.Context, transportURL string) (*Manifest, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apperr.RemoteUnavailable(err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, transportURL, nil)
	if err != nil {
		return nil, apperr.InvalidManifest("invalid transport URL: %v", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.RemoteUnavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperr.InvalidManifest("manifest fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.RemoteUnavailable(err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, apperr.InvalidManifest("manifest is not valid JSON: %v", err)
	}
	if manifest.ID == "" || manifest.Name == "" {
		return nil, apperr.InvalidManifest("manifest is missing id or name")
	}
	manifest.Raw = json.RawMessage(data)
	return &manifest, nil
}
