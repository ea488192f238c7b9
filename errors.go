package boxgate

import "errors"

var (
	// ErrNotFound is returned when an object or redirect entry does not exist
	ErrNotFound = errors.New("not found")
	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidBox is returned when a box identifier is not two digits
	ErrInvalidBox = errors.New("invalid box")
	// ErrMissingName is returned when a read or delete request carries no file name
	ErrMissingName = errors.New("missing name")
	// ErrNoFiles is returned when an upload carries no file parts
	ErrNoFiles = errors.New("no files")
	// ErrUnauthorized is returned when the request token does not match
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRateLimited is returned when a client exceeds the global request window
	ErrRateLimited = errors.New("rate limited")
	// ErrLockedOut is returned when a client exceeds the unauthorized request window
	ErrLockedOut = errors.New("too many unauthorized requests")
	// ErrPayloadTooLarge is returned when an upload body exceeds the configured limit
	ErrPayloadTooLarge = errors.New("payload too large")
)
