package stremio

import (
	"context"
	"sync"
)

// Reconciler keeps a user's remote addon collection a superset of the
// locally assigned addon set. Addons the remote side already carries that
// the panel does not track are never touched.
//
// Every operation is a read-modify-write against the remote collection.
// Calls targeting the same auth key are serialized with a per-key mutex;
// without it two concurrent cycles would race and lose updates.
type Reconciler struct {
	api   API
	locks keyedMutex
}

// NewReconciler creates a Reconciler on top of an API client.
func NewReconciler(api API) *Reconciler {
	return &Reconciler{api: api}
}

// AddOne ensures the transport URL is present in the remote collection.
// It is idempotent: a descriptor already present is a no-op success.
func (r *Reconciler) AddOne(ctx context.Context, authKey, transportURL string) error {
	unlock := r.locks.lock(authKey)
	defer unlock()

	addons, err := r.api.GetAddonCollection(ctx, authKey)
	if err != nil {
		return err
	}

	for _, addon := range addons {
		if addon.TransportURL == transportURL {
			return nil
		}
	}

	addons = append(addons, AddonDescriptor{TransportURL: transportURL, TransportName: "http"})
	return r.api.SetAddonCollection(ctx, authKey, addons)
}

// RemoveOne ensures the transport URL is absent from the remote collection.
// Removing a URL that is not present is a no-op success.
func (r *Reconciler) RemoveOne(ctx context.Context, authKey, transportURL string) error {
	unlock := r.locks.lock(authKey)
	defer unlock()

	addons, err := r.api.GetAddonCollection(ctx, authKey)
	if err != nil {
		return err
	}

	kept := addons[:0]
	for _, addon := range addons {
		if addon.TransportURL != transportURL {
			kept = append(kept, addon)
		}
	}
	if len(kept) == len(addons) {
		return nil
	}
	return r.api.SetAddonCollection(ctx, authKey, kept)
}

// SyncMany appends every transport URL not already present, in a single
// replace call. It returns the number of additions. When nothing is
// missing no remote write happens.
func (r *Reconciler) SyncMany(ctx context.Context, authKey string, transportURLs []string) (int, error) {
	unlock := r.locks.lock(authKey)
	defer unlock()

	addons, err := r.api.GetAddonCollection(ctx, authKey)
	if err != nil {
		return 0, err
	}

	existing := make(map[string]struct{}, len(addons))
	for _, addon := range addons {
		existing[addon.TransportURL] = struct{}{}
	}

	added := 0
	for _, url := range transportURLs {
		if _, ok := existing[url]; ok {
			continue
		}
		existing[url] = struct{}{}
		addons = append(addons, AddonDescriptor{TransportURL: url, TransportName: "http"})
		added++
	}

	if added == 0 {
		return 0, nil
	}
	if err := r.api.SetAddonCollection(ctx, authKey, addons); err != nil {
		return 0, err
	}
	return added, nil
}

// keyedMutex serializes work per string key. Mutexes are kept for the
// process lifetime; the key space is bounded by the number of synced
// accounts.
type keyedMutex struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.m == nil {
		k.m = make(map[string]*sync.Mutex)
	}
	l, ok := k.m[key]
	if !ok {
		l = &sync.Mutex{}
		k.m[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
