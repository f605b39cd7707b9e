package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/phrazzld/farecard/internal/domain"
	"github.com/phrazzld/farecard/internal/events"
	"github.com/phrazzld/farecard/internal/store"
)

// MockTransactor runs the unit of work against the mocked repositories
// without any isolation.
type MockTransactor struct {
	Cards      *MockCardStore
	CardTypes  *MockCardTypeStore
	Privileges *MockPrivilegeStore
}

func newMockTransactor() *MockTransactor {
	return &MockTransactor{
		Cards:      &MockCardStore{},
		CardTypes:  &MockCardTypeStore{},
		Privileges: &MockPrivilegeStore{},
	}
}

func (m *MockTransactor) RunInTransaction(ctx context.Context, fn store.UnitOfWork) error {
	return fn(ctx, store.Repositories{Cards: m.Cards, CardTypes: m.CardTypes, Privileges: m.Privileges})
}

// MockCardStore mocks the store.CardStore interface
type MockCardStore struct {
	mock.Mock
}

func (m *MockCardStore) Create(ctx context.Context, card *domain.Card) error {
	args := m.Called(ctx, card)
	return args.Error(0)
}

func (m *MockCardStore) GetByNumber(ctx context.Context, number uuid.UUID) (*domain.Card, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Card), args.Error(1)
}

func (m *MockCardStore) UpdateBalance(ctx context.Context, cardID uuid.UUID, balance decimal.Decimal) error {
	args := m.Called(ctx, cardID, balance)
	return args.Error(0)
}

func (m *MockCardStore) CreateTrip(ctx context.Context, trip domain.Trip) error {
	args := m.Called(ctx, trip)
	return args.Error(0)
}

func (m *MockCardStore) CloseTrip(ctx context.Context, trip domain.Trip) error {
	args := m.Called(ctx, trip)
	return args.Error(0)
}

// MockCardTypeStore mocks the store.CardTypeStore interface
type MockCardTypeStore struct {
	mock.Mock
}

func (m *MockCardTypeStore) Create(ctx context.Context, cardType *domain.CardType) error {
	args := m.Called(ctx, cardType)
	return args.Error(0)
}

func (m *MockCardTypeStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.CardType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CardType), args.Error(1)
}

func (m *MockCardTypeStore) Update(ctx context.Context, cardType *domain.CardType) error {
	args := m.Called(ctx, cardType)
	return args.Error(0)
}

func (m *MockCardTypeStore) AddPrivileges(ctx context.Context, cardTypeID uuid.UUID, privilegeIDs []uuid.UUID) error {
	args := m.Called(ctx, cardTypeID, privilegeIDs)
	return args.Error(0)
}

func (m *MockCardTypeStore) RemovePrivileges(ctx context.Context, cardTypeID uuid.UUID, privilegeIDs []uuid.UUID) error {
	args := m.Called(ctx, cardTypeID, privilegeIDs)
	return args.Error(0)
}

func (m *MockCardTypeStore) List(ctx context.Context) ([]*domain.CardType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CardType), args.Error(1)
}

// MockPrivilegeStore mocks the store.PrivilegeStore interface
type MockPrivilegeStore struct {
	mock.Mock
}

func (m *MockPrivilegeStore) Create(ctx context.Context, privilege *domain.Privilege) error {
	args := m.Called(ctx, privilege)
	return args.Error(0)
}

func (m *MockPrivilegeStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Privilege, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Privilege), args.Error(1)
}

func (m *MockPrivilegeStore) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Privilege, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Privilege), args.Error(1)
}

func (m *MockPrivilegeStore) Update(ctx context.Context, privilege *domain.Privilege) error {
	args := m.Called(ctx, privilege)
	return args.Error(0)
}

func (m *MockPrivilegeStore) List(ctx context.Context) ([]domain.Privilege, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Privilege), args.Error(1)
}

// MockEventEmitter mocks the events.EventEmitter interface
type MockEventEmitter struct {
	mock.Mock
}

func (m *MockEventEmitter) EmitEvent(ctx context.Context, event *events.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
