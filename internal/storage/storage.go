// Package storage holds the errors every repository implementation reports, so services can
// tell "missing" and "duplicate" apart from infrastructure failures regardless of the backend.
package storage

import "errors"

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	ErrLimitReached  = errors.New("record limit reached")
)
