package stremio

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhabibp/stremio-panel/core/apperr"
)

// fakeAPI is an in-memory remote account service keyed by auth key.
type fakeAPI struct {
	mu          sync.Mutex
	collections map[string][]AddonDescriptor
	getErr      error
	setErr      error
	setCalls    int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{collections: make(map[string][]AddonDescriptor)}
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (*Session, error) {
	return &Session{AuthKey: "fake-key"}, nil
}

func (f *fakeAPI) Register(ctx context.Context, email, password string) (*Session, error) {
	return &Session{AuthKey: "fake-key"}, nil
}

func (f *fakeAPI) GetUser(ctx context.Context, authKey string) (*RemoteUser, error) {
	return &RemoteUser{ID: "remote-" + authKey}, nil
}

func (f *fakeAPI) GetAddonCollection(ctx context.Context, authKey string) ([]AddonDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return append([]AddonDescriptor(nil), f.collections[authKey]...), nil
}

func (f *fakeAPI) SetAddonCollection(ctx context.Context, authKey string, addons []AddonDescriptor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	f.collections[authKey] = append([]AddonDescriptor(nil), addons...)
	return nil
}

func (f *fakeAPI) FetchManifest(ctx context.Context, transportURL string) (*Manifest, error) {
	return &Manifest{ID: "org.fake", Name: "Fake"}, nil
}

func urls(addons []AddonDescriptor) []string {
	out := make([]string, 0, len(addons))
	for _, a := range addons {
		out = append(out, a.TransportURL)
	}
	return out
}

func TestAddOneIdempotent(t *testing.T) {
	api := newFakeAPI()
	r := NewReconciler(api)
	ctx := context.Background()

	require.NoError(t, r.AddOne(ctx, "k", "https://a.example/manifest.json"))
	require.Len(t, api.collections["k"], 1)

	// second add of the same URL is a no-op success
	require.NoError(t, r.AddOne(ctx, "k", "https://a.example/manifest.json"))
	assert.Len(t, api.collections["k"], 1)
	assert.Equal(t, 1, api.setCalls)
}

func TestAddOnePreservesUntracked(t *testing.T) {
	api := newFakeAPI()
	api.collections["k"] = []AddonDescriptor{
		{TransportURL: "https://cinemeta.example/manifest.json", TransportName: "http"},
	}
	r := NewReconciler(api)

	require.NoError(t, r.AddOne(context.Background(), "k", "https://a.example/manifest.json"))
	assert.Equal(t, []string{
		"https://cinemeta.example/manifest.json",
		"https://a.example/manifest.json",
	}, urls(api.collections["k"]))
}

func TestRemoveOne(t *testing.T) {
	api := newFakeAPI()
	r := NewReconciler(api)
	ctx := context.Background()

	_, err := r.SyncMany(ctx, "k", []string{"https://x.example/manifest.json"})
	require.NoError(t, err)

	require.NoError(t, r.RemoveOne(ctx, "k", "https://x.example/manifest.json"))
	assert.Empty(t, api.collections["k"])

	// removing again is a no-op success and performs no write
	writes := api.setCalls
	require.NoError(t, r.RemoveOne(ctx, "k", "https://x.example/manifest.json"))
	assert.Equal(t, writes, api.setCalls)
}

func TestSyncManySingleWrite(t *testing.T) {
	api := newFakeAPI()
	api.collections["k"] = []AddonDescriptor{
		{TransportURL: "https://existing.example/manifest.json", TransportName: "http"},
	}
	r := NewReconciler(api)

	added, err := r.SyncMany(context.Background(), "k", []string{
		"https://existing.example/manifest.json",
		"https://new1.example/manifest.json",
		"https://new2.example/manifest.json",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, api.setCalls)
	assert.Len(t, api.collections["k"], 3)
}

func TestSyncManyOrderInsensitive(t *testing.T) {
	desired := []string{
		"https://existing.example/manifest.json",
		"https://new1.example/manifest.json",
		"https://new2.example/manifest.json",
	}
	permutations := [][]string{
		{desired[0], desired[1], desired[2]},
		{desired[2], desired[0], desired[1]},
		{desired[1], desired[2], desired[0]},
	}

	var first []string
	for _, perm := range permutations {
		api := newFakeAPI()
		api.collections["k"] = []AddonDescriptor{
			{TransportURL: "https://existing.example/manifest.json", TransportName: "http"},
		}
		r := NewReconciler(api)

		added, err := r.SyncMany(context.Background(), "k", perm)
		require.NoError(t, err)
		assert.Equal(t, 2, added)

		got := urls(api.collections["k"])
		sort.Strings(got)
		if first == nil {
			first = got
		} else {
			assert.Equal(t, first, got)
		}
	}
}

func TestSyncManyNothingMissing(t *testing.T) {
	api := newFakeAPI()
	api.collections["k"] = []AddonDescriptor{
		{TransportURL: "https://a.example/manifest.json", TransportName: "http"},
	}
	r := NewReconciler(api)

	added, err := r.SyncMany(context.Background(), "k", []string{"https://a.example/manifest.json"})
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Zero(t, api.setCalls)
}

func TestSyncManyDuplicateInput(t *testing.T) {
	api := newFakeAPI()
	r := NewReconciler(api)

	added, err := r.SyncMany(context.Background(), "k", []string{
		"https://a.example/manifest.json",
		"https://a.example/manifest.json",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Len(t, api.collections["k"], 1)
}

func TestReconcilerPropagatesRemoteErrors(t *testing.T) {
	api := newFakeAPI()
	api.getErr = apperr.RemoteUnavailable(assert.AnError)
	r := NewReconciler(api)
	ctx := context.Background()

	err := r.AddOne(ctx, "k", "https://a.example/manifest.json")
	assert.Equal(t, apperr.CodeRemoteUnavailable, apperr.CodeOf(err))

	_, err = r.SyncMany(ctx, "k", []string{"https://a.example/manifest.json"})
	assert.Equal(t, apperr.CodeRemoteUnavailable, apperr.CodeOf(err))
}

func TestReconcilerSerializesPerKey(t *testing.T) {
	api := newFakeAPI()
	r := NewReconciler(api)
	ctx := context.Background()

	// Concurrent AddOne calls for the same key must not lose updates.
	var wg sync.WaitGroup
	urls := []string{
		"https://a.example/manifest.json",
		"https://b.example/manifest.json",
		"https://c.example/manifest.json",
		"https://d.example/manifest.json",
	}
	for _, u := range urls {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			assert.NoError(t, r.AddOne(ctx, "k", u))
		}(u)
	}
	wg.Wait()

	assert.Len(t, api.collections["k"], len(urls))
}

func TestBatchReport(t *testing.T) {
	var report BatchReport
	report.Record("alice", nil)
	report.Record("bob", apperr.RemoteUnavailable(assert.AnError))
	report.Record("carol", nil)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Successful)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "bob", report.Errors[0].Identity)
}
