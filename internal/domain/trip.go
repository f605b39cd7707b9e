package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trip is one gate-entry-to-gate-exit journey. A trip with a nil Exit is
// still open.
type Trip struct {
	ID                 uuid.UUID  `json:"id"`
	CardID             uuid.UUID  `json:"card_id"`
	Entry              time.Time  `json:"entry"`
	EntryStationNumber int        `json:"entry_station_number"`
	Exit               *time.Time `json:"exit,omitempty"`
	ExitStationNumber  int        `json:"exit_station_number,omitempty"`
}

// IsOpen reports whether the trip is still waiting for an exit.
func (t *Trip) IsOpen() bool {
	return t.Exit == nil
}

// Close records the exit of the trip.
func (t *Trip) Close(now time.Time, exitStationNumber int) {
	exit := now
	t.Exit = &exit
	t.ExitStationNumber = exitStationNumber
}

// TripReceipt is the result of a gate exit.
type TripReceipt struct {
	Number             uuid.UUID       `json:"number"`
	Fare               decimal.Decimal `json:"fare"`
	Discount           decimal.Decimal `json:"discount"`
	Balance            decimal.Decimal `json:"balance"`
	EntryStationNumber int             `json:"entry_station_number"`
	ExitStationNumber  int             `json:"exit_station_number"`
	Entry              time.Time       `json:"entry"`
	Exit               time.Time       `json:"exit"`
}
