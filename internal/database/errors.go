package database

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable is matched by every failure to reach or query the
	// store. It is never turned into an empty result.
	ErrStoreUnavailable = errors.New("listing store unavailable")

	// ErrListingNotFound is returned by by-id operations.
	ErrListingNotFound = errors.New("listing not found")

	// ErrEmptyAddress is returned when a blacklist operation gets a blank address.
	ErrEmptyAddress = errors.New("address is empty")
)

// StoreError records the store operation that failed.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrStoreUnavailable, e.Err)
}

// Unwrap exposes both ErrStoreUnavailable and the driver error.
func (e *StoreError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.Err}
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
