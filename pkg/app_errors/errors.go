package apperrors

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrEventNotFound       = errors.New("event not found")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrCapacityExceeded    = errors.New("capacity exceeded")
	ErrAlreadyRefunded     = errors.New("booking already refunded")
	ErrNothingToRefund     = errors.New("booking has no payment to refund")
	ErrInvalidCredential   = errors.New("invalid credential")
	ErrDuplicateScan       = errors.New("credential already redeemed")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrDuplicatePaymentRef = errors.New("payment reference already booked")
	ErrPaymentRequired     = errors.New("event requires payment")
	ErrForbidden           = errors.New("forbidden")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInternalServerError = errors.New("internal server error")
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// CapacityExceededError carries the exact number of tickets still available.
type CapacityExceededError struct {
	Remaining int
}

func (e *CapacityExceededError) Error() string {
	if e.Remaining <= 0 {
		return "sold out"
	}
	return fmt.Sprintf("only %d remaining", e.Remaining)
}

func (e *CapacityExceededError) Is(target error) bool {
	return target == ErrCapacityExceeded
}

// InvalidCredentialError explains why a scanned token was rejected.
type InvalidCredentialError struct {
	Reason string
}

func NewInvalidCredential(reason string) *InvalidCredentialError {
	return &InvalidCredentialError{Reason: reason}
}

func (e *InvalidCredentialError) Error() string {
	return "invalid credential: " + e.Reason
}

func (e *InvalidCredentialError) Is(target error) bool {
	return target == ErrInvalidCredential
}

// DuplicateScanError is returned for every scan after the first one.
type DuplicateScanError struct {
	RedeemedAt time.Time
}

func (e *DuplicateScanError) Error() string {
	return "credential already redeemed at " + e.RedeemedAt.UTC().Format(time.RFC3339)
}

func (e *DuplicateScanError) Is(target error) bool {
	return target == ErrDuplicateScan
}
