package service

import "errors"

// Store service errors
var (
	// ErrStoreNotFound is returned when no store has the requested id
	ErrStoreNotFound = errors.New("store not found")

	// ErrStoreConflict is returned when another store has the same name and location
	ErrStoreConflict = errors.New("a store with this name and location already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidSearchTemplate is returned when a search template is unusable or cannot be derived
	ErrInvalidSearchTemplate = errors.New("invalid search template")

	// ErrSearchNotConfigured is returned when searching a store without a template
	ErrSearchNotConfigured = errors.New("search is not configured for this store")

	// ErrStorageNotConfigured is returned when exporting without a storage backend
	ErrStorageNotConfigured = errors.New("export storage not configured")

	// ErrExportNotFound is returned when storage holds no snapshot yet
	ErrExportNotFound = errors.New("no export snapshot found")
)

// FieldError ties a validation failure to the request field that caused it
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
