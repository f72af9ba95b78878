package types

import "errors"

// Domain errors for type validation
var (
	ErrMissingPath  = errors.New("finding path is required")
	ErrEmptyRange   = errors.New("finding range cannot be empty")
	ErrEmptyMessage = errors.New("finding message cannot be empty")
)
