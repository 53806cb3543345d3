// Package stremiotest provides an in-memory stremio.API double for tests.
package stremiotest

import (
	"context"
	"sync"

	"github.com/rhabibp/stremio-panel/core/apperr"
	"github.com/rhabibp/stremio-panel/core/stremio"
)

// FakeAPI implements stremio.API against in-memory state.
type FakeAPI struct {
	mu          sync.Mutex
	Passwords   map[string]string
	Sessions    map[string]*stremio.RemoteUser
	Collections map[string][]stremio.AddonDescriptor
	Manifests   map[string]*stremio.Manifest

	SetCalls int

	LoginErr    error
	GetErr      error
	SetErr      error
	ManifestErr error

	// BadKeys fails collection reads for specific auth keys.
	BadKeys map[string]error
}

// New creates an empty fake.
func New() *FakeAPI {
	return &FakeAPI{
		Passwords:   map[string]string{},
		Sessions:    map[string]*stremio.RemoteUser{},
		Collections: map[string][]stremio.AddonDescriptor{},
		Manifests:   map[string]*stremio.Manifest{},
	}
}

// Seed registers a remote user and returns its auth key.
func (f *FakeAPI) Seed(email, password string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Passwords[email] = password
	key := "key-" + email
	f.Sessions[key] = &stremio.RemoteUser{ID: "id-" + email, Email: email}
	return key
}

func (f *FakeAPI) Login(_ context.Context, email, password string) (*stremio.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LoginErr != nil {
		return nil, f.LoginErr
	}
	stored, ok := f.Passwords[email]
	if !ok {
		return nil, apperr.RemoteRejected("User not found")
	}
	if stored != password {
		return nil, apperr.RemoteRejected("Wrong password")
	}
	key := "key-" + email
	return &stremio.Session{AuthKey: key, User: *f.Sessions[key]}, nil
}

func (f *FakeAPI) Register(_ context.Context, email, password string) (*stremio.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LoginErr != nil {
		return nil, f.LoginErr
	}
	if _, ok := f.Passwords[email]; ok {
		return nil, apperr.RemoteRejected("User already exists")
	}
	f.Passwords[email] = password
	key := "key-" + email
	f.Sessions[key] = &stremio.RemoteUser{ID: "id-" + email, Email: email}
	return &stremio.Session{AuthKey: key, User: *f.Sessions[key]}, nil
}

func (f *FakeAPI) GetUser(_ context.Context, authKey string) (*stremio.RemoteUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	user, ok := f.Sessions[authKey]
	if !ok {
		return nil, apperr.RemoteRejected("Session does not exist")
	}
	return user, nil
}

func (f *FakeAPI) GetAddonCollection(_ context.Context, authKey string) ([]stremio.AddonDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	if err, ok := f.BadKeys[authKey]; ok {
		return nil, err
	}
	return append([]stremio.AddonDescriptor(nil), f.Collections[authKey]...), nil
}

func (f *FakeAPI) SetAddonCollection(_ context.Context, authKey string, addons []stremio.AddonDescriptor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetErr != nil {
		return f.SetErr
	}
	f.SetCalls++
	f.Collections[authKey] = append([]stremio.AddonDescriptor(nil), addons...)
	return nil
}

func (f *FakeAPI) FetchManifest(_ context.Context, transportURL string) (*stremio.Manifest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ManifestErr != nil {
		return nil, f.ManifestErr
	}
	manifest, ok := f.Manifests[transportURL]
	if !ok {
		return nil, apperr.InvalidManifest("no manifest at %s", transportURL)
	}
	return manifest, nil
}
