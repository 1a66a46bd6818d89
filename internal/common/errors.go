// Package common defines shared constants and sentinel errors used across
// the packtrack client components. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Ledger-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrDuplicateScan = errors.New("duplicate scan")

	// Operator-input errors (recovered locally, never sent to the gateway).
	ErrValidation = errors.New("validation error")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
