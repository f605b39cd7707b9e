package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/phrazzld/farecard/internal/domain"
	"github.com/phrazzld/farecard/internal/store"
)

type cardTypeRepo struct {
	d *dataset
}

var _ store.CardTypeStore = (*cardTypeRepo)(nil)

func (r *cardTypeRepo) Create(ctx context.Context, cardType *domain.CardType) error {
	if _, exists := r.d.cardTypes[cardType.ID]; exists {
		return fmt.Errorf("%w: card type %s", store.ErrDuplicate, cardType.ID)
	}
	row := *cardType
	row.Privileges = nil
	r.d.cardTypes[cardType.ID] = row

	ids := make([]uuid.UUID, 0, len(cardType.Privileges))
	for _, p := range cardType.Privileges {
		ids = append(ids, p.ID)
	}
	return r.AddPrivileges(ctx, cardType.ID, ids)
}

func (r *cardTypeRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.CardType, error) {
	ct, ok := r.d.loadCardType(id)
	if !ok {
		return nil, store.ErrCardTypeNotFound
	}
	return ct, nil
}

func (r *cardTypeRepo) Update(_ context.Context, cardType *domain.CardType) error {
	existing, ok := r.d.cardTypes[cardType.ID]
	if !ok {
		return store.ErrCardTypeNotFound
	}
	row := *cardType
	row.Privileges = nil
	row.CreatedAt = existing.CreatedAt
	r.d.cardTypes[cardType.ID] = row
	return nil
}

func (r *cardTypeRepo) AddPrivileges(_ context.Context, cardTypeID uuid.UUID, privilegeIDs []uuid.UUID) error {
	if _, ok := r.d.cardTypes[cardTypeID]; !ok {
		return store.ErrCardTypeNotFound
	}
	for _, id := range privilegeIDs {
		if _, ok := r.d.privileges[id]; !ok {
			return fmt.Errorf("%w: unknown privilege %s", store.ErrInvalidEntity, id)
		}
		a := domain.CardTypePrivilege{CardTypeID: cardTypeID, PrivilegeID: id}
		if !r.d.hasAssociation(a) {
			r.d.associations = append(r.d.associations, a)
		}
	}
	return nil
}

func (r *cardTypeRepo) RemovePrivileges(_ context.Context, cardTypeID uuid.UUID, privilegeIDs []uuid.UUID) error {
	r.d.associations = slices.DeleteFunc(r.d.associations, func(a domain.CardTypePrivilege) bool {
		return a.CardTypeID == cardTypeID && slices.Contains(privilegeIDs, a.PrivilegeID)
	})
	return nil
}

func (r *cardTypeRepo) List(_ context.Context) ([]*domain.CardType, error) {
	out := make([]*domain.CardType, 0, len(r.d.cardTypes))
	for id := range r.d.cardTypes {
		ct, _ := r.d.loadCardType(id)
		out = append(out, ct)
	}
	slices.SortFunc(out, func(a, b *domain.CardType) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID.String(), b.ID.String()))
	})
	return out, nil
}
