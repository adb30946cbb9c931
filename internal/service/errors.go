package service

import "errors"

// Access taxonomy. Handlers collapse everything except ErrGrantExpired to a
// generic denial on the public path; administrative callers get the precise
// error.
var (
	ErrInvalidToken          = errors.New("invalid token")
	ErrUnknownGrant          = errors.New("unknown grant")
	ErrGrantRevoked          = errors.New("grant revoked")
	ErrGrantExpired          = errors.New("grant expired")
	ErrPermissionDenied      = errors.New("permission denied")
	ErrSessionExpired        = errors.New("session expired")
	ErrSessionNotFound       = errors.New("session not found")
	ErrExtensionLimitReached = errors.New("session extension limit reached")
	ErrInvalidDuration       = errors.New("invalid grant duration")
	ErrInvalidPermission     = errors.New("invalid permission")
	ErrDuplicateGrant        = errors.New("duplicate grant id")
	ErrStoreUnavailable      = errors.New("store unavailable")
)
