package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/phrazzld/farecard/internal/domain"
)

// PrivilegeStore persists privileges.
type PrivilegeStore interface {
	Create(ctx context.Context, privilege *domain.Privilege) error

	// GetByID returns ErrPrivilegeNotFound if the privilege does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Privilege, error)

	// GetByIDs returns the privileges that exist among ids, in the order of
	// ids. Unknown ids are skipped; callers compare lengths to detect them.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Privilege, error)

	// Update returns ErrPrivilegeNotFound if the privilege does not exist.
	Update(ctx context.Context, privilege *domain.Privilege) error

	// List returns all privileges ordered by name.
	List(ctx context.Context) ([]domain.Privilege, error)
}
