package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phrazzld/farecard/internal/domain"
	"github.com/phrazzld/farecard/internal/events"
	"github.com/phrazzld/farecard/internal/platform/logger"
	"github.com/phrazzld/farecard/internal/store"
)

// TicketingService performs the point-of-sale operations on cards.
type TicketingService interface {
	// Activate issues a card of the given type under a new number. When the
	// type requires privileges, privilegeID must name one of them and
	// identificationNumber must satisfy its pattern.
	Activate(
		ctx context.Context,
		cardNumber, cardTypeID, privilegeID uuid.UUID,
		identificationNumber string,
	) (*domain.CardSummary, error)

	// CheckBalance reports the card's balance and expiry without changing it.
	CheckBalance(ctx context.Context, cardNumber uuid.UUID) (*domain.CardSummary, error)

	// Reload adds amount to the card's balance against payment. The part of
	// amount that would lift the balance over the card type's maximum is
	// returned in the change.
	Reload(ctx context.Context, cardNumber uuid.UUID, amount, payment decimal.Decimal) (*domain.ReloadReceipt, error)
}

type ticketingServiceImpl struct {
	engine
}

// NewTicketingService creates a TicketingService.
// It returns an error if the transactor is missing.
func NewTicketingService(deps Dependencies) (TicketingService, error) {
	e, err := newEngine("ticketing_service", deps, false)
	if err != nil {
		return nil, err
	}
	return &ticketingServiceImpl{engine: e}, nil
}

func (s *ticketingServiceImpl) Activate(
	ctx context.Context,
	cardNumber, cardTypeID, privilegeID uuid.UUID,
	identificationNumber string,
) (*domain.CardSummary, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("card_number", cardNumber.String()))

	if cardNumber == uuid.Nil {
		return nil, s.fail(log, opActivate, NewRuleError(opActivate, ErrInvalidIdentifier, msgCardNumberRequired, nil))
	}

	now, today := s.now()
	var card *domain.Card

	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, repos store.Repositories) error {
		_, err := repos.Cards.GetByNumber(ctx, cardNumber)
		switch {
		case err == nil:
			return NewRuleError(opActivate, ErrDuplicateCard, msgCardExists, nil)
		case !errors.Is(err, store.ErrCardNotFound):
			return wrapStoreError("look up card", err)
		}

		if cardTypeID == uuid.Nil {
			return NewRuleError(opActivate, ErrInvalidIdentifier, msgCardTypeIDRequired, nil)
		}
		cardType, err := repos.CardTypes.GetByID(ctx, cardTypeID)
		if errors.Is(err, store.ErrCardTypeNotFound) {
			return NewRuleError(opActivate, ErrCardTypeNotFound, msgCardTypeNotFound, nil)
		}
		if err != nil {
			return wrapStoreError("load card type", err)
		}

		if cardType.RequiresPrivilege() && privilegeID == uuid.Nil {
			return NewRuleError(opActivate, ErrCardActivationRejected, msgPrivilegeRequired, nil)
		}

		card = domain.NewCard(cardNumber, cardType, today)

		if cardType.RequiresPrivilege() {
			privilege, ok := cardType.FindPrivilege(privilegeID)
			if !ok {
				return NewRuleError(opActivate, ErrCardActivationRejected, msgPrivilegeNotApplicable, nil)
			}
			if !privilege.MatchIdentificationNumber(identificationNumber) {
				return NewRuleError(opActivate, ErrCardActivationRejected, msgIdentificationNumber, nil)
			}
			card.AttachPrivilege(privilege, identificationNumber)
		}

		if err := repos.Cards.Create(ctx, card); err != nil {
			if errors.Is(err, store.ErrCardNumberExists) {
				return NewRuleError(opActivate, ErrDuplicateCard, msgCardExists, err)
			}
			return wrapStoreError("create card", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(log, opActivate, err)
	}

	log.Info("card activated",
		slog.String("card_type_id", cardTypeID.String()),
		slog.String("balance", card.Balance.String()))

	payload := events.CardActivated{
		CardTypeID: card.Type.ID,
		Balance:    card.Balance,
		Expiry:     card.Expiry,
	}
	if card.PrivilegeCard != nil {
		payload.PrivilegeID = card.PrivilegeCard.PrivilegeID
	}
	s.emit(ctx, log, events.TypeCardActivated, cardNumber, payload, now)

	return card.Summary(), nil
}

func (s *ticketingServiceImpl) CheckBalance(ctx context.Context, cardNumber uuid.UUID) (*domain.CardSummary, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("card_number", cardNumber.String()))

	if cardNumber == uuid.Nil {
		return nil, s.fail(log, opCheckBalance,
			NewRuleError(opCheckBalance, ErrInvalidIdentifier, msgCardNumberRequired, nil))
	}

	var summary *domain.CardSummary
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, repos store.Repositories) error {
		card, err := loadCard(ctx, repos, opCheckBalance, cardNumber)
		if err != nil {
			return err
		}
		summary = card.Summary()
		return nil
	})
	if err != nil {
		return nil, s.fail(log, opCheckBalance, err)
	}
	return summary, nil
}

func (s *ticketingServiceImpl) Reload(
	ctx context.Context,
	cardNumber uuid.UUID,
	amount, payment decimal.Decimal,
) (*domain.ReloadReceipt, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("card_number", cardNumber.String()))

	if cardNumber == uuid.Nil {
		return nil, s.fail(log, opReload, NewRuleError(opReload, ErrInvalidIdentifier, msgCardNumberRequired, nil))
	}

	now, _ := s.now()
	var receipt *domain.ReloadReceipt

	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, repos store.Repositories) error {
		card, err := loadCard(ctx, repos, opReload, cardNumber)
		if err != nil {
			return err
		}

		ct := card.Type
		if amount.LessThan(ct.MinimumReloadAmount) {
			return NewRuleError(opReload, ErrReloadRejected, msgBelowMinimumReload, nil)
		}
		if amount.GreaterThan(ct.MaximumReloadAmount) {
			return NewRuleError(opReload, ErrReloadRejected, msgAboveMaximumReload, nil)
		}
		change := payment.Sub(amount)
		if change.IsNegative() {
			return NewRuleError(opReload, ErrReloadRejected, msgReloadExceedsPayment, nil)
		}

		balance := card.Balance.Add(amount)
		if excess := balance.Sub(ct.MaximumBalance); excess.IsPositive() {
			balance = ct.MaximumBalance
			change = change.Add(excess)
		}

		if err := repos.Cards.UpdateBalance(ctx, card.ID, balance); err != nil {
			return wrapStoreError("update balance", err)
		}
		card.Balance = balance

		receipt = &domain.ReloadReceipt{
			Number:  card.Number,
			Balance: balance,
			Expiry:  card.Expiry,
			Amount:  amount,
			Payment: payment,
			Change:  change,
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(log, opReload, err)
	}

	log.Info("card reloaded",
		slog.String("amount", amount.String()),
		slog.String("balance", receipt.Balance.String()),
		slog.String("change", receipt.Change.String()))

	s.emit(ctx, log, events.TypeCardReloaded, cardNumber, events.CardReloaded{
		Amount:  receipt.Amount,
		Payment: receipt.Payment,
		Change:  receipt.Change,
		Balance: receipt.Balance,
	}, now)

	return receipt, nil
}
