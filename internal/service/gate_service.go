package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phrazzld/farecard/internal/domain"
	"github.com/phrazzld/farecard/internal/events"
	"github.com/phrazzld/farecard/internal/platform/logger"
	"github.com/phrazzld/farecard/internal/store"
)

// GateService settles trips at station gates. A card is idle while all its
// trips are closed and in transit while one is open.
type GateService interface {
	// Enter opens a trip at the given station.
	Enter(ctx context.Context, cardNumber uuid.UUID, entryStationNumber int) error

	// Exit closes the open trip at the given station and deducts its fare.
	Exit(ctx context.Context, cardNumber uuid.UUID, exitStationNumber int) (*domain.TripReceipt, error)
}

type gateServiceImpl struct {
	engine
}

// NewGateService creates a GateService.
// It returns an error if the transactor or catalog is missing.
func NewGateService(deps Dependencies) (GateService, error) {
	e, err := newEngine("gate_service", deps, true)
	if err != nil {
		return nil, err
	}
	return &gateServiceImpl{engine: e}, nil
}

func (s *gateServiceImpl) Enter(ctx context.Context, cardNumber uuid.UUID, entryStationNumber int) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("card_number", cardNumber.String()),
		slog.Int("entry_station", entryStationNumber))

	if cardNumber == uuid.Nil {
		return s.fail(log, opEnter, NewRuleError(opEnter, ErrCardNotFound, msgCardNotFound, nil))
	}

	now, today := s.now()
	var trip domain.Trip

	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, repos store.Repositories) error {
		card, err := loadCard(ctx, repos, opEnter, cardNumber)
		if err != nil {
			return err
		}
		if card.IsExpired(today) {
			return NewRuleError(opEnter, ErrGateRejected, msgCardExpired, nil)
		}
		if card.InTransit() {
			return NewRuleError(opEnter, ErrGateRejected, msgPendingTrip, nil)
		}

		trip = card.StartTrip(now, entryStationNumber)
		if err := repos.Cards.CreateTrip(ctx, trip); err != nil {
			return wrapStoreError("create trip", err)
		}
		return nil
	})
	if err != nil {
		return s.fail(log, opEnter, err)
	}

	log.Info("gate entered", slog.String("trip_id", trip.ID.String()))
	s.emit(ctx, log, events.TypeGateEntered, cardNumber, events.GateEntered{
		TripID:             trip.ID,
		EntryStationNumber: entryStationNumber,
	}, now)
	return nil
}

func (s *gateServiceImpl) Exit(
	ctx context.Context,
	cardNumber uuid.UUID,
	exitStationNumber int,
) (*domain.TripReceipt, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("card_number", cardNumber.String()),
		slog.Int("exit_station", exitStationNumber))

	if cardNumber == uuid.Nil {
		return nil, s.fail(log, opExit, NewRuleError(opExit, ErrCardNotFound, msgCardNotFound, nil))
	}

	now, _ := s.now()
	var (
		receipt *domain.TripReceipt
		tripID  uuid.UUID
	)

	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, repos store.Repositories) error {
		card, err := loadCard(ctx, repos, opExit, cardNumber)
		if err != nil {
			return err
		}
		trip := card.PendingTrip()
		if trip == nil {
			return NewRuleError(opExit, ErrGateRejected, msgNoPendingTrip, nil)
		}

		fareStrategy, err := s.catalog.ResolveFareStrategy(card.Type.FareStrategyID)
		if err != nil {
			return NewRuleError(opExit, ErrGateRejected, msgFareStrategyNotFound, err)
		}
		fare, err := fareStrategy.ComputeFare(card, trip.EntryStationNumber, exitStationNumber)
		if err != nil {
			return NewRuleError(opExit, ErrGateRejected, msgFareComputation, err)
		}
		if fare.GreaterThan(card.Balance) {
			return NewRuleError(opExit, ErrGateRejected, msgInsufficientBalance, nil)
		}

		discount := decimal.Zero
		if card.Type.HasDiscount() {
			discountStrategy, err := s.catalog.ResolveDiscountStrategy(card.Type.DiscountStrategyID)
			if err != nil {
				return NewRuleError(opExit, ErrGateRejected, msgDiscountStrategyAbsent, err)
			}
			discount, err = discountStrategy.ComputePercentageDiscount(card)
			if err != nil {
				return NewRuleError(opExit, ErrGateRejected, msgDiscountComputation, err)
			}
			fare = fare.Mul(decimal.NewFromInt(1).Sub(discount))
		}

		balance := card.Balance.Sub(fare)
		if err := repos.Cards.UpdateBalance(ctx, card.ID, balance); err != nil {
			return wrapStoreError("update balance", err)
		}
		card.Balance = balance

		trip.Close(now, exitStationNumber)
		if err := repos.Cards.CloseTrip(ctx, *trip); err != nil {
			return wrapStoreError("close trip", err)
		}

		tripID = trip.ID
		receipt = &domain.TripReceipt{
			Number:             card.Number,
			Fare:               fare,
			Discount:           discount,
			Balance:            balance,
			EntryStationNumber: trip.EntryStationNumber,
			ExitStationNumber:  exitStationNumber,
			Entry:              trip.Entry,
			Exit:               now,
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(log, opExit, err)
	}

	log.Info("gate exited",
		slog.String("trip_id", tripID.String()),
		slog.String("fare", receipt.Fare.String()),
		slog.String("balance", receipt.Balance.String()))

	s.emit(ctx, log, events.TypeGateExited, cardNumber, events.GateExited{
		TripID:             tripID,
		EntryStationNumber: receipt.EntryStationNumber,
		ExitStationNumber:  exitStationNumber,
		Fare:               receipt.Fare,
		Discount:           receipt.Discount,
		Balance:            receipt.Balance,
	}, now)

	return receipt, nil
}
