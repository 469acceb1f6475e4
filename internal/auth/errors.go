package auth

import "errors"

var (
	// ErrTokenInvalid covers malformed tokens, bad signatures and tokens
	// of the wrong kind. Consumers deliberately cannot tell these apart.
	ErrTokenInvalid = errors.New("auth: invalid token")

	// ErrTokenExpired is returned for well-signed tokens past their expiry.
	ErrTokenExpired = errors.New("auth: token expired")

	// ErrNotFound is returned when the referenced principal does not exist.
	ErrNotFound = errors.New("auth: not found")

	// ErrDeliveryFailure indicates the reset message could not be dispatched.
	ErrDeliveryFailure = errors.New("auth: delivery failure")
)
