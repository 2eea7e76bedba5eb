package model

import "errors"

// Cross-cutting domain errors. The store maps driver errors onto these, and
// the HTTP layer maps them onto status codes with errors.Is.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned on unique-constraint conflicts
	// (duplicate email, duplicate membership, duplicate category budget).
	ErrAlreadyExists = errors.New("already exists")

	// ErrPermissionDenied is returned when the caller's role is not
	// sufficient for the requested operation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrValidation wraps all field-level validation failures.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when an operation is valid in isolation but
	// conflicts with current state (expired invite, last owner removal).
	ErrConflict = errors.New("conflict")
)
