package toolrouter

import "errors"

// Sentinel errors for tool router operations.
var (
	ErrNotFound          = errors.New("tool not found")
	ErrAlreadyRegistered = errors.New("tool already registered")
	ErrInvalidArguments  = errors.New("invalid tool arguments")
	ErrExecutionFailed   = errors.New("tool execution failed")
)
