// Package strategy holds the pluggable fare and discount computations and the
// catalog that resolves them by their stable identifiers.
package strategy

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/phrazzld/farecard/internal/domain"
)

var (
	// ErrStrategyNotFound is returned when an identifier has no registered
	// strategy.
	ErrStrategyNotFound = errors.New("strategy not found")

	// ErrInvalidCard is returned when a strategy is asked to price a nil card.
	ErrInvalidCard = errors.New("card is required")

	// ErrInvalidCardType is returned when the card carries no card type.
	ErrInvalidCardType = errors.New("card type is required")
)

// FareStrategy computes the undiscounted fare of a trip.
type FareStrategy interface {
	ComputeFare(card *domain.Card, entryStationNumber, exitStationNumber int) (decimal.Decimal, error)
}

// DiscountStrategy computes the fraction of the fare waived for a card,
// expressed as a value between zero and one.
type DiscountStrategy interface {
	ComputePercentageDiscount(card *domain.Card) (decimal.Decimal, error)
}
