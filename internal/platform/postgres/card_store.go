package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phrazzld/farecard/internal/domain"
	"github.com/phrazzld/farecard/internal/platform/logger"
	"github.com/phrazzld/farecard/internal/store"
)

// PostgresCardStore implements the store.CardStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardStore creates a new PostgreSQL implementation of the CardStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresCardStore(db store.DBTX, logger *slog.Logger) *PostgresCardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

var _ store.CardStore = (*PostgresCardStore)(nil)

// Create implements store.CardStore.Create.
// Returns store.ErrCardNumberExists when the number is already taken.
func (s *PostgresCardStore) Create(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("card_number", card.Number.String()))

	if card.Type == nil {
		return store.NewStoreError("card", "create", "card without card type", store.ErrInvalidEntity)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cards (id, number, card_type_id, created, expiry, balance)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, card.ID, card.Number, card.Type.ID, card.Created, nullableTime(card), card.Balance)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("card number already exists")
		} else {
			log.Error("failed to create card", slog.String("error", err.Error()))
		}
		return queryFailure("card", "create", err)
	}

	if pc := card.PrivilegeCard; pc != nil {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO privilege_cards (id, card_id, privilege_id, identification_number)
			VALUES ($1, $2, $3, $4)
		`, pc.ID, card.ID, pc.PrivilegeID, pc.IdentificationNumber)
		if err != nil {
			log.Error("failed to create privilege card", slog.String("error", err.Error()))
			return queryFailure("privilege card", "create", err)
		}
	}

	log.Debug("card created", slog.String("card_id", card.ID.String()))
	return nil
}

// GetByNumber implements store.CardStore.GetByNumber. The card row is
// locked for the rest of the transaction.
func (s *PostgresCardStore) GetByNumber(ctx context.Context, number uuid.UUID) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("card_number", number.String()))

	var (
		card       domain.Card
		cardTypeID uuid.UUID
		expiry     sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, number, card_type_id, created, expiry, balance
		FROM cards
		WHERE number = $1
		FOR UPDATE
	`, number).Scan(&card.ID, &card.Number, &cardTypeID, &card.Created, &expiry, &card.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("card not found")
		return nil, store.ErrCardNotFound
	}
	if err != nil {
		log.Error("failed to get card", slog.String("error", err.Error()))
		return nil, queryFailure("card", "get", err)
	}
	if expiry.Valid {
		card.Expiry = &expiry.Time
	}

	if card.Type, err = loadCardType(ctx, s.db, s.logger, cardTypeID, false); err != nil {
		return nil, err
	}
	if card.PrivilegeCard, err = s.privilegeCardOf(ctx, card.ID); err != nil {
		return nil, err
	}
	if card.Trips, err = s.tripsOf(ctx, card.ID); err != nil {
		return nil, err
	}
	return &card, nil
}

// UpdateBalance implements store.CardStore.UpdateBalance.
func (s *PostgresCardStore) UpdateBalance(ctx context.Context, cardID uuid.UUID, balance decimal.Decimal) error {
	result, err := s.db.ExecContext(ctx, `UPDATE cards SET balance = $1 WHERE id = $2`, balance, cardID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update balance",
			slog.String("error", err.Error()),
			slog.String("card_id", cardID.String()))
		return queryFailure("card", "update", err)
	}
	return checkRowsAffected(result, store.ErrCardNotFound)
}

// CreateTrip implements store.CardStore.CreateTrip.
func (s *PostgresCardStore) CreateTrip(ctx context.Context, trip domain.Trip) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trips (id, card_id, entry, entry_station_number)
		VALUES ($1, $2, $3, $4)
	`, trip.ID, trip.CardID, trip.Entry, trip.EntryStationNumber)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create trip",
			slog.String("error", err.Error()),
			slog.String("trip_id", trip.ID.String()))
		return queryFailure("trip", "create", err)
	}
	return nil
}

// CloseTrip implements store.CardStore.CloseTrip.
func (s *PostgresCardStore) CloseTrip(ctx context.Context, trip domain.Trip) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE trips SET exit = $1, exit_station_number = $2 WHERE id = $3
	`, trip.Exit, trip.ExitStationNumber, trip.ID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to close trip",
			slog.String("error", err.Error()),
			slog.String("trip_id", trip.ID.String()))
		return queryFailure("trip", "update", err)
	}
	return checkRowsAffected(result, store.ErrTripNotFound)
}

func (s *PostgresCardStore) privilegeCardOf(ctx context.Context, cardID uuid.UUID) (*domain.PrivilegeCard, error) {
	var pc domain.PrivilegeCard
	err := s.db.QueryRowContext(ctx, `
		SELECT pc.id, pc.identification_number, pc.privilege_id,
			p.id, p.name, p.description, p.identification_number_pattern, p.created_at, p.updated_at
		FROM privilege_cards pc
		JOIN privileges p ON p.id = pc.privilege_id
		WHERE pc.card_id = $1
	`, cardID).Scan(
		&pc.ID, &pc.IdentificationNumber, &pc.PrivilegeID,
		&pc.Privilege.ID, &pc.Privilege.Name, &pc.Privilege.Description,
		&pc.Privilege.IdentificationNumberPattern, &pc.Privilege.CreatedAt, &pc.Privilege.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, queryFailure("privilege card", "get", err)
	}
	return &pc, nil
}

func (s *PostgresCardStore) tripsOf(ctx context.Context, cardID uuid.UUID) ([]domain.Trip, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, card_id, entry, entry_station_number, exit, exit_station_number
		FROM trips
		WHERE card_id = $1
		ORDER BY entry, id
	`, cardID)
	if err != nil {
		return nil, queryFailure("trip", "list", err)
	}
	defer func() { _ = rows.Close() }()

	var trips []domain.Trip
	for rows.Next() {
		var (
			t           domain.Trip
			exit        sql.NullTime
			exitStation sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.CardID, &t.Entry, &t.EntryStationNumber, &exit, &exitStation); err != nil {
			return nil, queryFailure("trip", "list", err)
		}
		if exit.Valid {
			t.Exit = &exit.Time
		}
		t.ExitStationNumber = int(exitStation.Int64)
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, queryFailure("trip", "list", err)
	}
	return trips, nil
}

func nullableTime(card *domain.Card) sql.NullTime {
	if card.Expiry == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *card.Expiry, Valid: true}
}
