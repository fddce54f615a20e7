package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidGuestInfo   = errors.New("invalid guest info")
	ErrHoldUnavailable    = errors.New("hold unavailable")
	ErrNoActiveHold       = errors.New("no active hold")
	ErrConfirmationFailed = errors.New("confirmation failed")
	ErrSchemaMismatch     = errors.New("unexpected response schema")
	ErrOperationInFlight  = errors.New("operation already in flight")
)

// ConfirmationError carries the identifiers support needs when payment has
// succeeded but the backend could not produce booking records.
type ConfirmationError struct {
	HoldGroupID string
	PaymentRef  string
	Cause       error
}

func (e *ConfirmationError) Error() string {
	return fmt.Sprintf("confirmation failed for hold %s (payment %s): %v", e.HoldGroupID, e.PaymentRef, e.Cause)
}

func (e *ConfirmationError) Unwrap() error { return ErrConfirmationFailed }
