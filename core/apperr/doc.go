// Package apperr defines the application's error taxonomy.
//
// Every failure that can cross the HTTP boundary is represented as an
// *Error with a stable machine-readable code and the HTTP status it maps
// to. Services return these errors; the fiber ErrorHandler renders them.
//
// # Remote platform errors
//
// Failures talking to the remote account service are split in two:
//
//   - RemoteUnavailable: transport-level (network, timeout, bad payload)
//   - RemoteRejected: the remote side answered with an error message
//
// Neither is retried anywhere in this codebase; batch operations convert
// them into per-item failure records instead.
package apperr
