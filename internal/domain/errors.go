package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.

var (
	// Engine errors
	ErrInvalidActivityType = errors.New("invalid activity type")
	ErrUnknownAchievement  = errors.New("unknown achievement")
	ErrEmptyUserKey        = errors.New("user key must not be empty")

	// Persistence errors. Non-fatal: in-memory state stays authoritative.
	ErrPersistenceUnavailable = errors.New("points store unavailable")

	// API errors
	ErrUnauthorized = errors.New("missing or invalid bearer token")
	ErrForbidden    = errors.New("token does not grant access to this user")
)
