// Package stremio wraps the remote account service: authentication,
// profile lookup, addon-collection read/replace, and manifest fetching.
//
// The Reconciler sits on top of the raw API and implements the
// collection-synchronization protocol: the remote collection is kept a
// superset of the locally assigned addon set, never a strict mirror, so
// addons the user installed outside the panel survive every sync.
//
// No call in this package retries. Batch operations over many accounts
// live in the feature services, which isolate per-account failures and
// produce a BatchReport.
package stremio
