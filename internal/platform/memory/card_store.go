package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phrazzld/farecard/internal/domain"
	"github.com/phrazzld/farecard/internal/store"
)

type cardRepo struct {
	d *dataset
}

var _ store.CardStore = (*cardRepo)(nil)

func (r *cardRepo) Create(_ context.Context, card *domain.Card) error {
	if _, exists := r.d.cardsByNumber[card.Number]; exists {
		return store.ErrCardNumberExists
	}
	if card.Type == nil {
		return fmt.Errorf("%w: card without card type", store.ErrInvalidEntity)
	}
	if _, ok := r.d.cardTypes[card.Type.ID]; !ok {
		return fmt.Errorf("%w: unknown card type %s", store.ErrInvalidEntity, card.Type.ID)
	}

	row := cardRow{
		ID:         card.ID,
		Number:     card.Number,
		Created:    card.Created,
		Expiry:     card.Expiry,
		Balance:    card.Balance,
		CardTypeID: card.Type.ID,
	}
	if pc := card.PrivilegeCard; pc != nil {
		if _, ok := r.d.privileges[pc.PrivilegeID]; !ok {
			return fmt.Errorf("%w: unknown privilege %s", store.ErrInvalidEntity, pc.PrivilegeID)
		}
		row.PrivilegeCard = &privilegeCardRow{
			ID:                   pc.ID,
			IdentificationNumber: pc.IdentificationNumber,
			PrivilegeID:          pc.PrivilegeID,
		}
	}

	r.d.cards[card.ID] = row
	r.d.cardsByNumber[card.Number] = card.ID
	return nil
}

func (r *cardRepo) GetByNumber(_ context.Context, number uuid.UUID) (*domain.Card, error) {
	id, ok := r.d.cardsByNumber[number]
	if !ok {
		return nil, store.ErrCardNotFound
	}
	row := r.d.cards[id]

	card := &domain.Card{
		ID:      row.ID,
		Number:  row.Number,
		Created: row.Created,
		Expiry:  row.Expiry,
		Balance: row.Balance,
	}
	if ct, ok := r.d.loadCardType(row.CardTypeID); ok {
		card.Type = ct
	}
	if pc := row.PrivilegeCard; pc != nil {
		card.PrivilegeCard = &domain.PrivilegeCard{
			ID:                   pc.ID,
			IdentificationNumber: pc.IdentificationNumber,
			PrivilegeID:          pc.PrivilegeID,
			Privilege:            r.d.privileges[pc.PrivilegeID],
		}
	}
	for _, t := range r.d.trips {
		if t.CardID == row.ID {
			card.Trips = append(card.Trips, t)
		}
	}
	return card, nil
}

func (r *cardRepo) UpdateBalance(_ context.Context, cardID uuid.UUID, balance decimal.Decimal) error {
	row, ok := r.d.cards[cardID]
	if !ok {
		return store.ErrCardNotFound
	}
	row.Balance = balance
	r.d.cards[cardID] = row
	return nil
}

func (r *cardRepo) CreateTrip(_ context.Context, trip domain.Trip) error {
	if _, ok := r.d.cards[trip.CardID]; !ok {
		return fmt.Errorf("%w: trip for unknown card %s", store.ErrInvalidEntity, trip.CardID)
	}
	r.d.trips = append(r.d.trips, trip)
	return nil
}

func (r *cardRepo) CloseTrip(_ context.Context, trip domain.Trip) error {
	for i := range r.d.trips {
		if r.d.trips[i].ID == trip.ID {
			r.d.trips[i].Exit = trip.Exit
			r.d.trips[i].ExitStationNumber = trip.ExitStationNumber
			return nil
		}
	}
	return store.ErrTripNotFound
}
