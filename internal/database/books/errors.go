package books

import "errors"

// Repository error taxonomy. Messages are safe to display to end users.
var (
	// ErrNotFound means the requested book record is absent.
	ErrNotFound = errors.New("book not found")

	// ErrUnauthorized means the record exists but belongs to another user.
	// Books live in a flat table, so the owner column is verified on every
	// single-record operation.
	ErrUnauthorized = errors.New("you do not have access to this book")

	// ErrValidation means a required field was missing or invalid before
	// any write was attempted.
	ErrValidation = errors.New("invalid book data")
)
