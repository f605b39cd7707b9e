package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/farecard/internal/domain"
	"github.com/phrazzld/farecard/internal/platform/logger"
	"github.com/phrazzld/farecard/internal/store"
)

const privilegeColumns = `id, name, description, identification_number_pattern, created_at, updated_at`

// PostgresPrivilegeStore implements the store.PrivilegeStore interface
// using a PostgreSQL database as the storage backend.
type PostgresPrivilegeStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPrivilegeStore creates a privilege store over a connection or
// transaction managed by the caller. If logger is nil, a default logger is used.
func NewPostgresPrivilegeStore(db store.DBTX, logger *slog.Logger) *PostgresPrivilegeStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresPrivilegeStore{
		db:     db,
		logger: logger.With(slog.String("component", "privilege_store")),
	}
}

var _ store.PrivilegeStore = (*PostgresPrivilegeStore)(nil)

// Create implements store.PrivilegeStore.Create.
func (s *PostgresPrivilegeStore) Create(ctx context.Context, p *domain.Privilege) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO privileges (`+privilegeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.Name, p.Description, p.IdentificationNumberPattern, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		log.Error("failed to create privilege",
			slog.String("error", err.Error()),
			slog.String("privilege_id", p.ID.String()))
		return queryFailure("privilege", "create", err)
	}

	log.Debug("privilege created", slog.String("privilege_id", p.ID.String()))
	return nil
}

// GetByID implements store.PrivilegeStore.GetByID.
func (s *PostgresPrivilegeStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Privilege, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	row := s.db.QueryRowContext(ctx, `SELECT `+privilegeColumns+` FROM privileges WHERE id = $1`, id)
	p, err := scanPrivilege(row)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("privilege not found", slog.String("privilege_id", id.String()))
		return nil, store.ErrPrivilegeNotFound
	}
	if err != nil {
		log.Error("failed to get privilege",
			slog.String("error", err.Error()),
			slog.String("privilege_id", id.String()))
		return nil, queryFailure("privilege", "get", err)
	}
	return &p, nil
}

// GetByIDs implements store.PrivilegeStore.GetByIDs.
func (s *PostgresPrivilegeStore) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Privilege, error) {
	out := make([]domain.Privilege, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetByID(ctx, id)
		if errors.Is(err, store.ErrPrivilegeNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

// Update implements store.PrivilegeStore.Update.
func (s *PostgresPrivilegeStore) Update(ctx context.Context, p *domain.Privilege) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE privileges
		SET name = $1, description = $2, identification_number_pattern = $3, updated_at = $4
		WHERE id = $5
	`, p.Name, p.Description, p.IdentificationNumberPattern, p.UpdatedAt, p.ID)
	if err != nil {
		log.Error("failed to update privilege",
			slog.String("error", err.Error()),
			slog.String("privilege_id", p.ID.String()))
		return queryFailure("privilege", "update", err)
	}
	return checkRowsAffected(result, store.ErrPrivilegeNotFound)
}

// List implements store.PrivilegeStore.List.
func (s *PostgresPrivilegeStore) List(ctx context.Context) ([]domain.Privilege, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+privilegeColumns+` FROM privileges ORDER BY name, id`)
	if err != nil {
		return nil, queryFailure("privilege", "list", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Privilege
	for rows.Next() {
		p, err := scanPrivilege(rows)
		if err != nil {
			return nil, queryFailure("privilege", "list", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, queryFailure("privilege", "list", err)
	}
	return out, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrivilege(r rowScanner) (domain.Privilege, error) {
	var p domain.Privilege
	err := r.Scan(&p.ID, &p.Name, &p.Description, &p.IdentificationNumberPattern, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
