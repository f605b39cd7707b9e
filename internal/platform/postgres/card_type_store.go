package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/farecard/internal/domain"
	"github.com/phrazzld/farecard/internal/platform/logger"
	"github.com/phrazzld/farecard/internal/store"
)

const cardTypeColumns = `id, name, description, initial_balance, minimum_balance, maximum_balance,
	minimum_reload_amount, maximum_reload_amount, base_fare, validity_seconds,
	fare_strategy_id, discount_strategy_id, created_at, updated_at`

// PostgresCardTypeStore implements the store.CardTypeStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCardTypeStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardTypeStore creates a card type store over a connection or
// transaction managed by the caller. If logger is nil, a default logger is used.
func NewPostgresCardTypeStore(db store.DBTX, logger *slog.Logger) *PostgresCardTypeStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCardTypeStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_type_store")),
	}
}

var _ store.CardTypeStore = (*PostgresCardTypeStore)(nil)

// Create implements store.CardTypeStore.Create.
func (s *PostgresCardTypeStore) Create(ctx context.Context, ct *domain.CardType) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO card_types (`+cardTypeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		ct.ID, ct.Name, ct.Description,
		ct.InitialBalance, ct.MinimumBalance, ct.MaximumBalance,
		ct.MinimumReloadAmount, ct.MaximumReloadAmount, ct.BaseFare,
		validitySeconds(ct.Validity),
		ct.FareStrategyID, nullableUUID(ct.DiscountStrategyID),
		ct.CreatedAt, ct.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create card type",
			slog.String("error", err.Error()),
			slog.String("card_type_id", ct.ID.String()))
		return queryFailure("card type", "create", err)
	}

	ids := make([]uuid.UUID, 0, len(ct.Privileges))
	for _, p := range ct.Privileges {
		ids = append(ids, p.ID)
	}
	if err := s.AddPrivileges(ctx, ct.ID, ids); err != nil {
		return err
	}

	log.Debug("card type created",
		slog.String("card_type_id", ct.ID.String()),
		slog.Int("privileges", len(ids)))
	return nil
}

// GetByID implements store.CardTypeStore.GetByID. The card type row is
// locked for the rest of the transaction.
func (s *PostgresCardTypeStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.CardType, error) {
	return loadCardType(ctx, s.db, s.logger, id, true)
}

// Update implements store.CardTypeStore.Update.
func (s *PostgresCardTypeStore) Update(ctx context.Context, ct *domain.CardType) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE card_types
		SET name = $1, description = $2,
			initial_balance = $3, minimum_balance = $4, maximum_balance = $5,
			minimum_reload_amount = $6, maximum_reload_amount = $7, base_fare = $8,
			validity_seconds = $9, fare_strategy_id = $10, discount_strategy_id = $11,
			updated_at = $12
		WHERE id = $13
	`,
		ct.Name, ct.Description,
		ct.InitialBalance, ct.MinimumBalance, ct.MaximumBalance,
		ct.MinimumReloadAmount, ct.MaximumReloadAmount, ct.BaseFare,
		validitySeconds(ct.Validity), ct.FareStrategyID, nullableUUID(ct.DiscountStrategyID),
		ct.UpdatedAt, ct.ID,
	)
	if err != nil {
		log.Error("failed to update card type",
			slog.String("error", err.Error()),
			slog.String("card_type_id", ct.ID.String()))
		return queryFailure("card type", "update", err)
	}
	return checkRowsAffected(result, store.ErrCardTypeNotFound)
}

// AddPrivileges implements store.CardTypeStore.AddPrivileges.
func (s *PostgresCardTypeStore) AddPrivileges(ctx context.Context, cardTypeID uuid.UUID, privilegeIDs []uuid.UUID) error {
	for _, privilegeID := range privilegeIDs {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO card_type_privileges (card_type_id, privilege_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, cardTypeID, privilegeID)
		if err != nil {
			return queryFailure("card type privilege", "create", err)
		}
	}
	return nil
}

// RemovePrivileges implements store.CardTypeStore.RemovePrivileges.
func (s *PostgresCardTypeStore) RemovePrivileges(
	ctx context.Context,
	cardTypeID uuid.UUID,
	privilegeIDs []uuid.UUID,
) error {
	for _, privilegeID := range privilegeIDs {
		_, err := s.db.ExecContext(ctx, `
			DELETE FROM card_type_privileges
			WHERE card_type_id = $1 AND privilege_id = $2
		`, cardTypeID, privilegeID)
		if err != nil {
			return queryFailure("card type privilege", "delete", err)
		}
	}
	return nil
}

// List implements store.CardTypeStore.List.
func (s *PostgresCardTypeStore) List(ctx context.Context) ([]*domain.CardType, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+cardTypeColumns+` FROM card_types ORDER BY name, id`)
	if err != nil {
		return nil, queryFailure("card type", "list", err)
	}

	var out []*domain.CardType
	for rows.Next() {
		ct, err := scanCardType(rows)
		if err != nil {
			_ = rows.Close()
			return nil, queryFailure("card type", "list", err)
		}
		out = append(out, ct)
	}
	err = rows.Err()
	_ = rows.Close()
	if err != nil {
		return nil, queryFailure("card type", "list", err)
	}

	// The rows must be closed before the next query on a transaction.
	for _, ct := range out {
		if ct.Privileges, err = privilegesOf(ctx, s.db, ct.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// loadCardType reads a card type with its required privileges, optionally
// locking the card type row.
func loadCardType(
	ctx context.Context,
	db store.DBTX,
	l *slog.Logger,
	id uuid.UUID,
	lock bool,
) (*domain.CardType, error) {
	log := logger.FromContextOrDefault(ctx, l)

	query := `SELECT ` + cardTypeColumns + ` FROM card_types WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	ct, err := scanCardType(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("card type not found", slog.String("card_type_id", id.String()))
		return nil, store.ErrCardTypeNotFound
	}
	if err != nil {
		log.Error("failed to get card type",
			slog.String("error", err.Error()),
			slog.String("card_type_id", id.String()))
		return nil, queryFailure("card type", "get", err)
	}

	if ct.Privileges, err = privilegesOf(ctx, db, id); err != nil {
		return nil, err
	}
	return ct, nil
}

func privilegesOf(ctx context.Context, db store.DBTX, cardTypeID uuid.UUID) ([]domain.Privilege, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT p.id, p.name, p.description, p.identification_number_pattern, p.created_at, p.updated_at
		FROM card_type_privileges ctp
		JOIN privileges p ON p.id = ctp.privilege_id
		WHERE ctp.card_type_id = $1
		ORDER BY p.name, p.id
	`, cardTypeID)
	if err != nil {
		return nil, queryFailure("card type privilege", "list", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Privilege
	for rows.Next() {
		p, err := scanPrivilege(rows)
		if err != nil {
			return nil, queryFailure("card type privilege", "list", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, queryFailure("card type privilege", "list", err)
	}
	return out, nil
}

func scanCardType(r rowScanner) (*domain.CardType, error) {
	var (
		ct       domain.CardType
		validity int64
		discount uuid.NullUUID
	)
	err := r.Scan(
		&ct.ID, &ct.Name, &ct.Description,
		&ct.InitialBalance, &ct.MinimumBalance, &ct.MaximumBalance,
		&ct.MinimumReloadAmount, &ct.MaximumReloadAmount, &ct.BaseFare,
		&validity, &ct.FareStrategyID, &discount,
		&ct.CreatedAt, &ct.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	ct.Validity = time.Duration(validity) * time.Second
	if discount.Valid {
		ct.DiscountStrategyID = discount.UUID
	}
	return &ct, nil
}

// validitySeconds stores validity at whole-second precision.
func validitySeconds(d time.Duration) int64 {
	return int64(d / time.Second)
}

func nullableUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}
