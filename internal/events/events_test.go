package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	t.Parallel()

	number := uuid.New()
	at := time.Date(2024, time.March, 10, 8, 0, 0, 0, time.UTC)
	payload := CardReloaded{
		Amount:  decimal.NewFromInt(1000),
		Payment: decimal.NewFromInt(1000),
		Change:  decimal.NewFromInt(100),
		Balance: decimal.NewFromInt(10000),
	}

	event, err := NewEvent(TypeCardReloaded, number, payload, at)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, TypeCardReloaded, event.Type)
	assert.Equal(t, number, event.CardNumber)
	assert.Equal(t, at, event.CreatedAt)

	var decoded CardReloaded
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.True(t, payload.Change.Equal(decoded.Change))
	assert.True(t, payload.Balance.Equal(decoded.Balance))
}

func TestNewEventRejectsUnencodablePayload(t *testing.T) {
	t.Parallel()

	_, err := NewEvent(TypeGateEntered, uuid.New(), make(chan int), time.Now())
	assert.Error(t, err)
}

// MockEventHandler implements the EventHandler interface for testing
type MockEventHandler struct {
	LastEvent    *Event
	HandlerError error
	HandledCount int
}

// HandleEvent implements the EventHandler interface
func (h *MockEventHandler) HandleEvent(ctx context.Context, event *Event) error {
	h.LastEvent = event
	h.HandledCount++
	return h.HandlerError
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	r := &Recorder{}
	first, err := NewEvent(TypeGateEntered, uuid.New(), GateEntered{TripID: uuid.New(), EntryStationNumber: 1}, time.Now())
	require.NoError(t, err)
	second, err := NewEvent(TypeGateExited, first.CardNumber, GateExited{TripID: uuid.New()}, time.Now())
	require.NoError(t, err)

	require.NoError(t, r.HandleEvent(context.Background(), first))
	require.NoError(t, r.HandleEvent(context.Background(), second))

	assert.Equal(t, []string{TypeGateEntered, TypeGateExited}, r.Types())
	events := r.Events()
	require.Len(t, events, 2)
	events[0] = nil
	assert.Same(t, first, r.Events()[0], "Events returns a copy")
}

func TestMockEventHandlerError(t *testing.T) {
	t.Parallel()

	handler := &MockEventHandler{HandlerError: errors.New("handler error")}
	event, err := NewEvent(TypeCardActivated, uuid.New(), CardActivated{}, time.Now())
	require.NoError(t, err)

	assert.EqualError(t, handler.HandleEvent(context.Background(), event), "handler error")
	assert.Equal(t, 1, handler.HandledCount)
}
