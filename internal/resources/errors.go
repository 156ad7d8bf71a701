package resources

import "errors"

// Sentinel errors for resource registry operations.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrAlreadyRegistered = errors.New("resource already registered")
	ErrReadFailed        = errors.New("resource read failed")
)
