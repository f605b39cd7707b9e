package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types.
const (
	TypeCardActivated = "card.activated"
	TypeCardReloaded  = "card.reloaded"
	TypeGateEntered   = "gate.entered"
	TypeGateExited    = "gate.exited"
)

// Event describes one committed change to a card.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	// CardNumber is the external number of the card the event concerns
	CardNumber uuid.UUID `json:"card_number"`

	// Payload contains the type-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the engine time at which the change happened
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates an Event with the specified type and payload.
func NewEvent(eventType string, cardNumber uuid.UUID, payload any, at time.Time) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:         uuid.New(),
		Type:       eventType,
		CardNumber: cardNumber,
		Payload:    payloadBytes,
		CreatedAt:  at,
	}, nil
}

// CardActivated is the payload of TypeCardActivated.
type CardActivated struct {
	CardTypeID  uuid.UUID       `json:"card_type_id"`
	PrivilegeID uuid.UUID       `json:"privilege_id,omitempty"`
	Balance     decimal.Decimal `json:"balance"`
	Expiry      *time.Time      `json:"expiry,omitempty"`
}

// CardReloaded is the payload of TypeCardReloaded.
type CardReloaded struct {
	Amount  decimal.Decimal `json:"amount"`
	Payment decimal.Decimal `json:"payment"`
	Change  decimal.Decimal `json:"change"`
	Balance decimal.Decimal `json:"balance"`
}

// GateEntered is the payload of TypeGateEntered.
type GateEntered struct {
	TripID             uuid.UUID `json:"trip_id"`
	EntryStationNumber int       `json:"entry_station_number"`
}

// GateExited is the payload of TypeGateExited.
type GateExited struct {
	TripID             uuid.UUID       `json:"trip_id"`
	EntryStationNumber int             `json:"entry_station_number"`
	ExitStationNumber  int             `json:"exit_station_number"`
	Fare               decimal.Decimal `json:"fare"`
	Discount           decimal.Decimal `json:"discount"`
	Balance            decimal.Decimal `json:"balance"`
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows engines to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *Event) error
}
