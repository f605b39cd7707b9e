// Package memory implements the record store contracts in process memory.
// Each transaction works on a cloned snapshot of the data that replaces the
// live data only when the unit of work succeeds.
package memory

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phrazzld/farecard/internal/domain"
	"github.com/phrazzld/farecard/internal/platform/logger"
	"github.com/phrazzld/farecard/internal/store"
)

type cardRow struct {
	ID            uuid.UUID
	Number        uuid.UUID
	Created       time.Time
	Expiry        *time.Time
	Balance       decimal.Decimal
	CardTypeID    uuid.UUID
	PrivilegeCard *privilegeCardRow
}

type privilegeCardRow struct {
	ID                   uuid.UUID
	IdentificationNumber string
	PrivilegeID          uuid.UUID
}

// dataset is one consistent version of every table. Rows are values, so a
// shallow copy of each map and slice is an independent snapshot.
type dataset struct {
	cards         map[uuid.UUID]cardRow
	cardsByNumber map[uuid.UUID]uuid.UUID
	trips         []domain.Trip
	cardTypes     map[uuid.UUID]domain.CardType
	associations  []domain.CardTypePrivilege
	privileges    map[uuid.UUID]domain.Privilege
}

func newDataset() *dataset {
	return &dataset{
		cards:         make(map[uuid.UUID]cardRow),
		cardsByNumber: make(map[uuid.UUID]uuid.UUID),
		cardTypes:     make(map[uuid.UUID]domain.CardType),
		privileges:    make(map[uuid.UUID]domain.Privilege),
	}
}

func (d *dataset) clone() *dataset {
	return &dataset{
		cards:         maps.Clone(d.cards),
		cardsByNumber: maps.Clone(d.cardsByNumber),
		trips:         slices.Clone(d.trips),
		cardTypes:     maps.Clone(d.cardTypes),
		associations:  slices.Clone(d.associations),
		privileges:    maps.Clone(d.privileges),
	}
}

// Store is an in-memory store.Transactor. Transactions are serialized by a
// single lock, which gives every unit of work exclusive access to all cards.
type Store struct {
	mu     sync.Mutex
	data   *dataset
	logger *slog.Logger
}

var _ store.Transactor = (*Store)(nil)

// NewStore creates an empty store. A nil logger uses slog.Default().
func NewStore(l *slog.Logger) *Store {
	if l == nil {
		l = slog.Default()
	}
	return &Store{
		data:   newDataset(),
		logger: l.With(slog.String("component", "memory_store")),
	}
}

// RunInTransaction implements store.Transactor. If fn returns an error or
// panics, none of its changes become visible.
func (s *Store) RunInTransaction(ctx context.Context, fn store.UnitOfWork) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	repos := store.Repositories{
		Cards:      &cardRepo{d: snapshot},
		CardTypes:  &cardTypeRepo{d: snapshot},
		Privileges: &privilegeRepo{d: snapshot},
	}

	if err := fn(ctx, repos); err != nil {
		log.Debug("discarded snapshot due to error", slog.String("error", err.Error()))
		return err
	}

	s.data = snapshot
	log.Debug("snapshot committed")
	return nil
}

// privilegesOf returns the privileges associated with a card type in
// association order.
func (d *dataset) privilegesOf(cardTypeID uuid.UUID) []domain.Privilege {
	var out []domain.Privilege
	for _, a := range d.associations {
		if a.CardTypeID != cardTypeID {
			continue
		}
		if p, ok := d.privileges[a.PrivilegeID]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (d *dataset) loadCardType(id uuid.UUID) (*domain.CardType, bool) {
	ct, ok := d.cardTypes[id]
	if !ok {
		return nil, false
	}
	ct.Privileges = d.privilegesOf(id)
	return &ct, true
}

func (d *dataset) hasAssociation(a domain.CardTypePrivilege) bool {
	return slices.Contains(d.associations, a)
}
