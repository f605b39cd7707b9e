package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phrazzld/farecard/internal/domain"
)

// CardStore persists activated cards together with their privilege card and
// trip history.
type CardStore interface {
	// Create saves a newly activated card and, when set, its privilege card.
	// Returns ErrCardNumberExists if a card with the same number exists.
	Create(ctx context.Context, card *domain.Card) error

	// GetByNumber loads the card aggregate: its card type with required
	// privileges, its privilege card and its trips in chronological order.
	// Inside a transaction the card row is locked until commit.
	// Returns ErrCardNotFound if no card carries the number.
	GetByNumber(ctx context.Context, number uuid.UUID) (*domain.Card, error)

	// UpdateBalance sets the balance of the card with the given ID.
	// Returns ErrCardNotFound if the card does not exist.
	UpdateBalance(ctx context.Context, cardID uuid.UUID, balance decimal.Decimal) error

	// CreateTrip appends an open trip to the card referenced by trip.CardID.
	CreateTrip(ctx context.Context, trip domain.Trip) error

	// CloseTrip records the exit time and station of an existing trip.
	// Returns ErrTripNotFound if the trip does not exist.
	CloseTrip(ctx context.Context, trip domain.Trip) error
}
