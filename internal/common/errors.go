// Package common defines shared constants and sentinel errors used across
// ascgate packages. Callers should use errors.Is to match these values;
// concrete error types in other packages wrap or report one of these kinds.
package common

import "errors"

var (
	// Identity material is missing or malformed. Never retried.
	ErrConfiguration = errors.New("configuration error")

	// The signing key could not be loaded or the signer rejected the input.
	ErrSigning = errors.New("signing error")

	// Network failure, timeout or cancelled round trip. Safe to retry.
	ErrTransport = errors.New("transport error")

	// The remote API answered with an errors envelope or a non-2xx status.
	ErrDomain = errors.New("domain error")

	// Upload pipeline errors.
	ErrReservation = errors.New("reservation error")
	ErrCommit      = errors.New("commit error")

	// ErrInvalidState is returned when a session is driven out of order.
	ErrInvalidState = errors.New("invalid session state")

	// Journal lookups.
	ErrorNotFound = errors.New("not found")
)
