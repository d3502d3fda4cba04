package shared

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates a referenced document or customer is missing.
	ErrNotFound = errors.New("billing: not found")
	// ErrValidation indicates rejected input.
	ErrValidation = errors.New("billing: validation failed")
	// ErrImmutableDocument indicates a write against an issued invoice's frozen fields.
	ErrImmutableDocument = errors.New("billing: issued invoice is immutable")
	// ErrInvalidState indicates a forbidden lifecycle transition.
	ErrInvalidState = errors.New("billing: invalid state transition")
	// ErrInconsistentBalance indicates a store-level conflict detected during a
	// settlement recompute; the caller should retry the whole transaction.
	ErrInconsistentBalance = errors.New("billing: balance changed concurrently")
)

// FieldError reports a validation failure on a named field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("billing: invalid %s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrValidation }

// AmountBoundError reports a payment amount outside its permitted bound.
// Bound carries the remaining balance the caller needs to explain the rejection.
type AmountBoundError struct {
	Amount decimal.Decimal
	Bound  decimal.Decimal
}

func (e *AmountBoundError) Error() string {
	return fmt.Sprintf("billing: amount %s exceeds remaining balance %s",
		e.Amount.StringFixed(2), e.Bound.StringFixed(2))
}

func (e *AmountBoundError) Unwrap() error { return ErrValidation }
