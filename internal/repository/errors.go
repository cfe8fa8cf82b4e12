package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable wraps every failure reported by the database driver.
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrRecordNotFound   = errors.New("record not found")
	ErrRecordClosed     = errors.New("record already closed")
)

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", ErrStoreUnavailable, op, err)
}
