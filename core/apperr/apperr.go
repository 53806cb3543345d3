package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Code identifies a failure class. Codes are stable and part of the API
// contract; handlers and clients switch on them.
type Code string

const (
	CodeNotFound            Code = "not_found"
	CodeForbidden           Code = "forbidden"
	CodeUnauthorized        Code = "unauthorized"
	CodeConflict            Code = "conflict"
	CodeValidation          Code = "validation"
	CodeInvalidManifest     Code = "invalid_manifest"
	CodeRemoteUnavailable   Code = "remote_unavailable"
	CodeRemoteRejected      Code = "remote_rejected"
	CodeNotSynced           Code = "not_synced"
	CodeInvalidOrExpiredPin Code = "invalid_or_expired_pin"
	CodePinExpired          Code = "pin_expired"
	CodeInvalidSession      Code = "invalid_session"
	CodeInternal            Code = "internal"
)

// Error is the application error type. It carries a machine-readable code,
// the HTTP status it maps to, and a human-readable message.
type Error struct {
	Code    Code
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is match on the code, so sentinel-style checks like
// errors.Is(err, apperr.NotFound("")) work regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func newf(code Code, status int, format string, args ...any) *Error {
	return &Error{Code: code, Status: status, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return newf(CodeNotFound, fiber.StatusNotFound, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newf(CodeForbidden, fiber.StatusForbidden, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return newf(CodeUnauthorized, fiber.StatusUnauthorized, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newf(CodeConflict, fiber.StatusConflict, format, args...)
}

func Validation(format string, args ...any) *Error {
	return newf(CodeValidation, fiber.StatusBadRequest, format, args...)
}

func InvalidManifest(format string, args ...any) *Error {
	return newf(CodeInvalidManifest, fiber.StatusBadRequest, format, args...)
}

// RemoteUnavailable wraps a transport-level failure talking to the remote
// platform (connection refused, timeout, malformed response).
func RemoteUnavailable(err error) *Error {
	return &Error{Code: CodeRemoteUnavailable, Status: fiber.StatusBadGateway, Message: "remote platform unavailable", Err: err}
}

// RemoteRejected carries the error message supplied by the remote platform.
func RemoteRejected(message string) *Error {
	return newf(CodeRemoteRejected, fiber.StatusBadGateway, "%s", message)
}

func NotSynced(format string, args ...any) *Error {
	return newf(CodeNotSynced, fiber.StatusBadRequest, format, args...)
}

func InvalidOrExpiredPin() *Error {
	return newf(CodeInvalidOrExpiredPin, fiber.StatusBadRequest, "invalid or expired PIN")
}

func PinExpired() *Error {
	return newf(CodePinExpired, fiber.StatusBadRequest, "PIN has expired")
}

func InvalidSession() *Error {
	return newf(CodeInvalidSession, fiber.StatusBadRequest, "invalid session ID")
}

func Internal(err error) *Error {
	return &Error{Code: CodeInternal, Status: fiber.StatusInternalServerError, Message: "server error", Err: err}
}

// CodeOf extracts the code from any error, defaulting to internal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// ErrorHandler is the fiber error handler. It maps *Error values to their
// HTTP status and a JSON body; anything else becomes a 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return c.Status(e.Status).JSON(fiber.Map{
			"error":   e.Code,
			"message": e.Message,
		})
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"error":   CodeInternal,
			"message": fe.Message,
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   CodeInternal,
		"message": "server error",
	})
}
