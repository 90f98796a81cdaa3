package history

import "errors"

// Common errors returned by Store implementations.
var (
	// ErrNotFound is returned when a requested record doesn't exist.
	ErrNotFound = errors.New("scan record not found")

	// ErrAlreadyExists is returned when trying to save a record whose ID is taken.
	ErrAlreadyExists = errors.New("scan record already exists")

	// ErrStoreDisabled is returned when the store is not enabled.
	ErrStoreDisabled = errors.New("history store is disabled")

	// ErrInvalidID is returned when an ID is invalid or malformed.
	ErrInvalidID = errors.New("invalid record ID")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConnectionFailed is returned when the store connection fails.
	ErrConnectionFailed = errors.New("store connection failed")
)
