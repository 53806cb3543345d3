// Package models defines the shared domain entities.
//
// Account and Addon live in one package because they reference each other
// through the account_addons many-to-many join table; splitting them per
// feature would create an import cycle. Plugin-scoped entities (the PIN
// session) stay in their feature's models package.
package models
