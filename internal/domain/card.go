package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Card is a stored-value transit credential. Number is the identifier
// presented at gates and point-of-sale; ID is the record identity.
type Card struct {
	ID      uuid.UUID       `json:"id"`
	Number  uuid.UUID       `json:"number"`
	Created time.Time       `json:"created"`
	Expiry  *time.Time      `json:"expiry,omitempty"`
	Balance decimal.Decimal `json:"balance"`

	// Type is loaded together with the card; it is a reference, the card
	// does not own it.
	Type *CardType `json:"type,omitempty"`

	PrivilegeCard *PrivilegeCard `json:"privilege_card,omitempty"`

	// Trips are kept in the order the gate events happened.
	Trips []Trip `json:"trips,omitempty"`
}

// PrivilegeCard records the privilege a card was activated under together
// with the holder's identification number.
type PrivilegeCard struct {
	ID                   uuid.UUID `json:"id"`
	IdentificationNumber string    `json:"identification_number"`
	PrivilegeID          uuid.UUID `json:"privilege_id"`
	Privilege            Privilege `json:"privilege"`
}

// NewCard activates a card of the given type on the given day. The balance
// starts at the type's initial balance and expiry is derived from its
// validity.
func NewCard(number uuid.UUID, cardType *CardType, today time.Time) *Card {
	return &Card{
		ID:      uuid.New(),
		Number:  number,
		Created: today,
		Expiry:  cardType.ExpiryFrom(today),
		Balance: cardType.InitialBalance,
		Type:    cardType,
	}
}

// AttachPrivilege issues the privilege card for the given privilege.
func (c *Card) AttachPrivilege(privilege Privilege, identificationNumber string) {
	c.PrivilegeCard = &PrivilegeCard{
		ID:                   uuid.New(),
		IdentificationNumber: identificationNumber,
		PrivilegeID:          privilege.ID,
		Privilege:            privilege,
	}
}

// IsExpired reports whether the card's expiry lies before today.
// Cards without expiry never expire.
func (c *Card) IsExpired(today time.Time) bool {
	return c.Expiry != nil && c.Expiry.Before(today)
}

// PendingTrip returns the most recent trip without an exit, or nil when the
// card is idle. The returned pointer refers into c.Trips.
func (c *Card) PendingTrip() *Trip {
	for i := len(c.Trips) - 1; i >= 0; i-- {
		if c.Trips[i].IsOpen() {
			return &c.Trips[i]
		}
	}
	return nil
}

// InTransit reports whether the card has an open trip.
func (c *Card) InTransit() bool {
	return c.PendingTrip() != nil
}

// StartTrip appends an open trip entered at the given station and returns it.
func (c *Card) StartTrip(now time.Time, entryStationNumber int) Trip {
	trip := Trip{
		ID:                 uuid.New(),
		CardID:             c.ID,
		Entry:              now,
		EntryStationNumber: entryStationNumber,
	}
	c.Trips = append(c.Trips, trip)
	return trip
}

// CompletedTripsOn counts trips whose exit falls on the same calendar day
// as day, in day's location.
func (c *Card) CompletedTripsOn(day time.Time) int {
	count := 0
	for _, t := range c.Trips {
		if t.Exit != nil && SameDay(t.Exit.In(day.Location()), day) {
			count++
		}
	}
	return count
}

// Summary returns the point-of-sale view of the card.
func (c *Card) Summary() *CardSummary {
	return &CardSummary{
		Number:  c.Number,
		Balance: c.Balance,
		Expiry:  c.Expiry,
	}
}

// CardSummary is what ticketing operations report back about a card.
type CardSummary struct {
	Number  uuid.UUID       `json:"number"`
	Balance decimal.Decimal `json:"balance"`
	Expiry  *time.Time      `json:"expiry,omitempty"`
}

// ReloadReceipt is the result of a balance reload.
type ReloadReceipt struct {
	Number  uuid.UUID       `json:"number"`
	Balance decimal.Decimal `json:"balance"`
	Expiry  *time.Time      `json:"expiry,omitempty"`
	Amount  decimal.Decimal `json:"amount"`
	Payment decimal.Decimal `json:"payment"`
	Change  decimal.Decimal `json:"change"`
}

// StartOfDay truncates t to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
