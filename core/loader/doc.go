// Package loader provides the plugin-like feature loading system.
//
// It allows the application to register and initialize features (modules)
// dynamically. Each feature implements the Feature interface, which defines
// its lifecycle hooks and route registration logic.
//
// This architecture promotes modularity: core features (auth, accounts,
// resellers, addons) and optional plugins (pinauth) are developed and
// tested in isolation and wired together in cmd/start.go.
package loader
