package domain

import "errors"

// Error taxonomy shared by every component.
var (
	// ErrValidation is returned for malformed input (bad address, empty batch).
	// Never retried; the API surfaces it as 4xx.
	ErrValidation = errors.New("validation error")

	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUpstream marks a single provider or network failure.
	ErrUpstream = errors.New("upstream error")

	// ErrFormat is returned when binary or JSON data does not match the expected layout.
	ErrFormat = errors.New("format error")

	// ErrDivisionByZero is returned by analytics on empty reserves.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrSupplyUnavailable is returned when a mint reports zero or no supply.
	ErrSupplyUnavailable = errors.New("token supply unavailable")

	// ErrNoProviderAvailable is returned when no RPC endpoint passes the liveness probe.
	ErrNoProviderAvailable = errors.New("no provider available")
)
