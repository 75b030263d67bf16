package domain

import (
	"errors"
	"fmt"
)

const (
	ErrCodeInvalidAmount  = "invalid_amount"
	ErrCodeInvalidPeriod  = "invalid_period"
	ErrCodeInvalidStand   = "invalid_stand"
	ErrCodeInvalidDueDate = "invalid_due_date"
	ErrCodeInvalidMethod  = "invalid_method"
	ErrCodeInvalidStatus  = "invalid_status"
	ErrCodeInvalidSort    = "invalid_sort"
	ErrCodeInvalidID      = "invalid_id"
	ErrCodeInvalidGroup   = "invalid_group"
	ErrCodeInvalidSource  = "invalid_source"
	ErrCodeDuplicateDue   = "duplicate_due"
	ErrCodeOverpayment    = "overpayment"

	ErrCodeInvalidPaymentDate = "invalid_payment_date"

	ErrCodeAmountPaidChanged = "amount_paid_changed"
	ErrCodeDueBusy           = "due_busy"
)

var (
	ErrNotFound       = errors.New("not_found")
	ErrNoPayment      = errors.New("no_payment")
	ErrNotSupported   = errors.New("not_supported")
	ErrInvalidRequest = errors.New("invalid_request")
)

// ValidationError reports malformed input. No state was mutated.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func NewValidationError(field, code, message string) *ValidationError {
	return &ValidationError{Field: field, Code: code, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

// ConflictError reports that the authoritative copy no longer matches what
// the caller expected.
type ConflictError struct {
	Code    string
	Message string
}

func NewConflictError(code, message string) *ConflictError {
	return &ConflictError{Code: code, Message: message}
}

func (e *ConflictError) Error() string {
	if e.Message == "" {
		return "conflict: " + e.Code
	}
	return "conflict: " + e.Code + ": " + e.Message
}

// TransportError reports a failed or timed-out collaborator call.
type TransportError struct {
	Op  string
	Err error
}

func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	ok := errors.As(err, &v)
	return v, ok
}

func IsValidation(err error) bool {
	_, ok := AsValidation(err)
	return ok
}

func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

func IsTransport(err error) bool {
	var t *TransportError
	return errors.As(err, &t)
}
