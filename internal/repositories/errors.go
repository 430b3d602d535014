package repositories

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by lookups that matched no row.
var ErrNotFound = errors.New("record not found")

// StoreError is a persistence failure. It aborts the current file but never a batch.
type StoreError struct {
	Op    string
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: failed to %s: %v", e.Op, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Cause: err}
}
