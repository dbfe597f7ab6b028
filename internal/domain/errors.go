package domain

import "errors"

var (
	// ErrInvalidInput covers malformed numeric text and non-positive measured values.
	ErrInvalidInput = errors.New("invalid input")
	// ErrOutOfToleranceRange means the nominal value falls outside every tolerance table band.
	ErrOutOfToleranceRange = errors.New("value outside tolerance table")
	// ErrProtocolClosed is returned for any mutation of a finished protocol.
	ErrProtocolClosed = errors.New("protocol closed")
	// ErrNetworkFailure wraps transport errors and unexpected backend answers; retrying is safe.
	ErrNetworkFailure = errors.New("network failure")

	ErrNotFound          = errors.New("not found")
	ErrNotResolved       = errors.New("protocol not resolved")
	ErrAlreadyResolved   = errors.New("protocol already resolved")
	ErrUnsupportedFormat = errors.New("unsupported format")
)
