package service

import (
	"errors"
	"fmt"
)

// Rule error kinds. Every *RuleError matches exactly one of these with
// errors.Is. strategy.ErrStrategyNotFound is matched in addition whenever a
// strategy id failed to resolve.
var (
	// ErrInvalidIdentifier indicates a required id argument was uuid.Nil.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrCardNotFound indicates no card carries the given number.
	ErrCardNotFound = errors.New("card not found")

	// ErrDuplicateCard indicates a card with the given number was already activated.
	ErrDuplicateCard = errors.New("duplicate card")

	// ErrCardTypeNotFound indicates the referenced card type does not exist.
	ErrCardTypeNotFound = errors.New("card type not found")

	// ErrCardActivationRejected indicates the card type's privilege rules
	// refused the activation.
	ErrCardActivationRejected = errors.New("card activation rejected")

	// ErrGateRejected indicates a gate entry or exit was refused.
	ErrGateRejected = errors.New("gate rejected")

	// ErrReloadRejected indicates a reload amount or payment was refused.
	ErrReloadRejected = errors.New("reload rejected")

	// ErrCardTypeValidationFailed indicates a card type definition was refused.
	ErrCardTypeValidationFailed = errors.New("card type validation failed")

	// ErrPrivilegeValidationFailed indicates a privilege definition was refused.
	ErrPrivilegeValidationFailed = errors.New("privilege validation failed")
)

// RuleError reports a business rule violation.
type RuleError struct {
	Operation string // Engine operation, e.g. "gate exit"
	Kind      error  // One of the Err* kinds above
	Message   string // Human readable rule text
	Err       error  // Underlying cause, may be nil
}

// Error implements the error interface for RuleError. The cause is reachable
// through Unwrap and is not repeated in the text.
func (e *RuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}

// Unwrap exposes both the kind and the cause to errors.Is/errors.As.
func (e *RuleError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewRuleError creates a new RuleError.
func NewRuleError(operation string, kind error, message string, err error) *RuleError {
	return &RuleError{
		Operation: operation,
		Kind:      kind,
		Message:   message,
		Err:       err,
	}
}

// Operation names used in RuleError.Operation and log records.
const (
	opSaveCardType  = "save card type"
	opSavePrivilege = "save privilege"
	opGetCardType   = "get card type"
	opActivate      = "activate card"
	opCheckBalance  = "check balance"
	opReload        = "reload card"
	opEnter         = "gate entry"
	opExit          = "gate exit"
)

// Rule messages.
const (
	msgCardNumberRequired     = "Card number is required."
	msgCardTypeIDRequired     = "Card type id is required."
	msgCardNotFound           = "Card not found."
	msgCardExists             = "Card with the same number already exists."
	msgCardTypeNotFound       = "Card type not found."
	msgCardTypeIDUnknown      = "Card type with specified id does not exist."
	msgPrivilegeIDUnknown     = "Privilege with specified id does not exist."
	msgPrivilegeRequired      = "Card type requires a privilege."
	msgPrivilegeNotApplicable = "Privilege is not applicable to the card type."
	msgIdentificationNumber   = "Identification number does not match the privilege."
	msgBelowMinimumReload     = "Reload amount is below minimum amount."
	msgAboveMaximumReload     = "Reload amount exceeds maximum amount."
	msgReloadExceedsPayment   = "Reload amount exceeds payment."
	msgCardExpired            = "Card has expired."
	msgPendingTrip            = "Card has pending trip."
	msgNoPendingTrip          = "Card has no pending trip."
	msgFareStrategyNotFound   = "Fare strategy not found."
	msgDiscountStrategyAbsent = "Discount strategy not found."
	msgFareComputation        = "Fare could not be computed."
	msgDiscountComputation    = "Discount could not be computed."
	msgInsufficientBalance    = "Insufficient balance."
)
