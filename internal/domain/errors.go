package domain

import "errors"

var (
	// ErrValidation marks caller input errors, mapped to 400 responses.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks missing records, mapped to 404 responses.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks state conflicts, mapped to 409 responses.
	ErrConflict = errors.New("conflict")
)
