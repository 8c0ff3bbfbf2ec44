package storage

import "errors"

// Common storage errors
var (
	ErrNotFound = errors.New("attempt not found")
)

// IsNotFoundError returns true if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
