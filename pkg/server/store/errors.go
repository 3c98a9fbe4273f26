package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by exact-row reads when the row does not exist.
// Resolution never surfaces it: a missing row means "inherit".
var ErrNotFound = errors.New("not found")

// StorageError wraps a failure of the underlying store. It is never retried
// by this module.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Wrap classifies err for op. Nil, ErrNotFound, cancellation and deadline
// errors pass through unchanged; anything else becomes a *StorageError.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err is or wraps a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
