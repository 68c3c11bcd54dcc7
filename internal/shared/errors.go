package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a uniqueness conflict on write.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRouteNotRegistered indicates the (route, method) pair has no permission row.
	ErrRouteNotRegistered = errors.New("route not registered")
	// ErrUnauthenticated indicates a missing, malformed, revoked or expired token,
	// or a token whose subject no longer exists.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrForbidden indicates an authenticated principal whose roles lack the permission.
	ErrForbidden = errors.New("not authorized")
	// ErrTooManyAttempts indicates the login throttle rejected the request.
	ErrTooManyAttempts = errors.New("too many attempts")
)
