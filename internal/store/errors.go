package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is wrapped by every entity-specific not-found error.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is wrapped by every entity-specific uniqueness error.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity violates a store-level
	// constraint (check, not-null or foreign key).
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a transaction fails to begin or
	// commit. The unit of work's own errors are returned unwrapped.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrCardNotFound indicates that no card carries the requested number.
	ErrCardNotFound = fmt.Errorf("%w: card", ErrNotFound)

	// ErrCardTypeNotFound indicates that the requested card type does not exist.
	ErrCardTypeNotFound = fmt.Errorf("%w: card type", ErrNotFound)

	// ErrPrivilegeNotFound indicates that the requested privilege does not exist.
	ErrPrivilegeNotFound = fmt.Errorf("%w: privilege", ErrNotFound)

	// ErrTripNotFound indicates that the trip to close does not exist.
	ErrTripNotFound = fmt.Errorf("%w: trip", ErrNotFound)

	// ErrCardNumberExists indicates that a card with the given number was
	// already activated.
	ErrCardNumberExists = fmt.Errorf("%w: card number", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
// Entity-specific errors wrap ErrNotFound, so one check covers them all.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError reports a failed store operation on one entity kind. Err holds
// the mapped cause, so errors.Is(err, ErrCardNumberExists) and similar checks
// see through it.
type StoreError struct {
	Entity    string // "card", "card type", "privilege" or "trip"
	Operation string // e.g. "create", "update balance"
	Message   string
	Err       error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a StoreError.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
