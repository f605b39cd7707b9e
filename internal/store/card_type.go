package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/phrazzld/farecard/internal/domain"
)

// CardTypeStore persists card types and their required-privilege associations.
type CardTypeStore interface {
	// Create saves a new card type and an association row for each of its
	// privileges.
	Create(ctx context.Context, cardType *domain.CardType) error

	// GetByID loads a card type with its required privileges.
	// Returns ErrCardTypeNotFound if the card type does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CardType, error)

	// Update overwrites the scalar fields of an existing card type.
	// Associations are changed through AddPrivileges and RemovePrivileges.
	// Returns ErrCardTypeNotFound if the card type does not exist.
	Update(ctx context.Context, cardType *domain.CardType) error

	// AddPrivileges inserts association rows. Rows that already exist are
	// left untouched.
	AddPrivileges(ctx context.Context, cardTypeID uuid.UUID, privilegeIDs []uuid.UUID) error

	// RemovePrivileges deletes association rows. Missing rows are ignored.
	RemovePrivileges(ctx context.Context, cardTypeID uuid.UUID, privilegeIDs []uuid.UUID) error

	// List returns all card types ordered by name.
	List(ctx context.Context) ([]*domain.CardType, error)
}
