package storage

import "errors"

// Storage errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrVersionConflict is returned when a compare-and-swap observes a
	// version other than the one the caller read.
	ErrVersionConflict = errors.New("version conflict: aggregate changed concurrently")

	// ErrInsufficientFunds is returned when a transfer exceeds the payer balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
)
