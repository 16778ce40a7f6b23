package gate

import "errors"

// Sentinel errors returned by Authorize.
var (
	// ErrUnauthenticated is returned for the zero-value subject.
	ErrUnauthenticated = errors.New("gate: unauthenticated")
	// ErrForbidden is returned when a profile or policy denies the action.
	ErrForbidden = errors.New("gate: forbidden")
)
