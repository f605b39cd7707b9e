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

type privilegeRepo struct {
	d *dataset
}

var _ store.PrivilegeStore = (*privilegeRepo)(nil)

func (r *privilegeRepo) Create(_ context.Context, privilege *domain.Privilege) error {
	if _, exists := r.d.privileges[privilege.ID]; exists {
		return fmt.Errorf("%w: privilege %s", store.ErrDuplicate, privilege.ID)
	}
	r.d.privileges[privilege.ID] = *privilege
	return nil
}

func (r *privilegeRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Privilege, error) {
	p, ok := r.d.privileges[id]
	if !ok {
		return nil, store.ErrPrivilegeNotFound
	}
	return &p, nil
}

func (r *privilegeRepo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]domain.Privilege, error) {
	out := make([]domain.Privilege, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.d.privileges[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *privilegeRepo) Update(_ context.Context, privilege *domain.Privilege) error {
	existing, ok := r.d.privileges[privilege.ID]
	if !ok {
		return store.ErrPrivilegeNotFound
	}
	row := *privilege
	row.CreatedAt = existing.CreatedAt
	r.d.privileges[privilege.ID] = row
	return nil
}

func (r *privilegeRepo) List(_ context.Context) ([]domain.Privilege, error) {
	out := make([]domain.Privilege, 0, len(r.d.privileges))
	for _, p := range r.d.privileges {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b domain.Privilege) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID.String(), b.ID.String()))
	})
	return out, nil
}
