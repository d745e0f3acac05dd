package service

import (
	"github.com/pkg/errors"
)

var (
	// ErrVenueRequired is returned when a call names no venue.
	ErrVenueRequired = errors.New("venue id is required")
	// ErrStoreUnavailable is returned when the history store cannot be read.
	ErrStoreUnavailable = errors.New("history store unavailable")
)

// unavailableError matches both ErrStoreUnavailable and its cause.
type unavailableError struct {
	cause error
}

func (e *unavailableError) Error() string {
	return ErrStoreUnavailable.Error() + ": " + e.cause.Error()
}

func (e *unavailableError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.cause}
}

// storeError marks err as a store failure.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	return &unavailableError{cause: err}
}
