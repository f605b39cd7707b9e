package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/farecard/internal/domain"
	"github.com/phrazzld/farecard/internal/domain/strategy"
	"github.com/phrazzld/farecard/internal/platform/logger"
	"github.com/phrazzld/farecard/internal/store"
)

// AdministrationService maintains card types, privileges and the strategy
// selections they reference.
type AdministrationService interface {
	// CreateOrEditCardType validates the model and creates a card type (nil
	// ID) or overwrites an existing one, reconciling its required privileges.
	CreateOrEditCardType(ctx context.Context, model domain.CardTypeModel) (*domain.CardTypeModel, error)

	// CreateOrEditPrivilege validates the model and creates a privilege (nil
	// ID) or overwrites an existing one.
	CreateOrEditPrivilege(ctx context.Context, model domain.PrivilegeModel) (*domain.PrivilegeModel, error)

	// GetCardType returns the card type with its required privileges.
	GetCardType(ctx context.Context, id uuid.UUID) (*domain.CardType, error)

	ListCardTypes(ctx context.Context) ([]*domain.CardType, error)
	ListPrivileges(ctx context.Context) ([]domain.Privilege, error)

	// FareStrategies and DiscountStrategies list the selectable strategies in
	// registration order.
	FareStrategies() []strategy.Entry
	DiscountStrategies() []strategy.Entry
}

type administrationServiceImpl struct {
	engine
}

// NewAdministrationService creates an AdministrationService.
// It returns an error if the transactor or catalog is missing.
func NewAdministrationService(deps Dependencies) (AdministrationService, error) {
	e, err := newEngine("administration_service", deps, true)
	if err != nil {
		return nil, err
	}
	return &administrationServiceImpl{engine: e}, nil
}

func (s *administrationServiceImpl) CreateOrEditCardType(
	ctx context.Context,
	model domain.CardTypeModel,
) (*domain.CardTypeModel, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("card_type_id", model.ID.String()))

	if err := model.Validate(); err != nil {
		return nil, s.fail(log, opSaveCardType, validationFailure(opSaveCardType, ErrCardTypeValidationFailed, err))
	}
	if _, err := s.catalog.ResolveFareStrategy(model.FareStrategyID); err != nil {
		return nil, s.fail(log, opSaveCardType,
			NewRuleError(opSaveCardType, ErrCardTypeValidationFailed, msgFareStrategyNotFound, err))
	}
	if model.DiscountStrategyID != uuid.Nil {
		if _, err := s.catalog.ResolveDiscountStrategy(model.DiscountStrategyID); err != nil {
			return nil, s.fail(log, opSaveCardType,
				NewRuleError(opSaveCardType, ErrCardTypeValidationFailed, msgDiscountStrategyAbsent, err))
		}
	}

	requested := dedupeIDs(model.PrivilegeIDs)
	now, _ := s.now()
	var saved domain.CardTypeModel

	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, repos store.Repositories) error {
		var privileges []domain.Privilege
		if len(requested) > 0 {
			found, err := repos.Privileges.GetByIDs(ctx, requested)
			if err != nil {
				return wrapStoreError("resolve privileges", err)
			}
			if len(found) != len(requested) {
				return NewRuleError(opSaveCardType, ErrCardTypeValidationFailed, msgPrivilegeIDUnknown, nil)
			}
			privileges = found
		}

		if model.ID == uuid.Nil {
			ct, err := domain.NewCardType(model, privileges, now)
			if err != nil {
				return validationFailure(opSaveCardType, ErrCardTypeValidationFailed, err)
			}
			if err := repos.CardTypes.Create(ctx, ct); err != nil {
				return wrapStoreError("create card type", err)
			}
			saved = domain.ModelOf(ct)
			log.Info("card type created", slog.String("card_type_id", ct.ID.String()))
			return nil
		}

		ct, err := repos.CardTypes.GetByID(ctx, model.ID)
		if errors.Is(err, store.ErrCardTypeNotFound) {
			return NewRuleError(opSaveCardType, ErrCardTypeValidationFailed, msgCardTypeIDUnknown, ErrCardTypeNotFound)
		}
		if err != nil {
			return wrapStoreError("load card type", err)
		}

		model.ApplyTo(ct, now)
		if err := repos.CardTypes.Update(ctx, ct); err != nil {
			return wrapStoreError("update card type", err)
		}

		added, removed := ct.ReconcilePrivileges(privileges)
		if len(added) > 0 {
			if err := repos.CardTypes.AddPrivileges(ctx, ct.ID, added); err != nil {
				return wrapStoreError("add card type privileges", err)
			}
		}
		if len(removed) > 0 {
			if err := repos.CardTypes.RemovePrivileges(ctx, ct.ID, removed); err != nil {
				return wrapStoreError("remove card type privileges", err)
			}
		}

		saved = domain.ModelOf(ct)
		log.Info("card type updated",
			slog.Int("privileges_added", len(added)),
			slog.Int("privileges_removed", len(removed)))
		return nil
	})
	if err != nil {
		return nil, s.fail(log, opSaveCardType, err)
	}
	return &saved, nil
}

func (s *administrationServiceImpl) CreateOrEditPrivilege(
	ctx context.Context,
	model domain.PrivilegeModel,
) (*domain.PrivilegeModel, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("privilege_id", model.ID.String()))

	if err := model.Validate(); err != nil {
		return nil, s.fail(log, opSavePrivilege, validationFailure(opSavePrivilege, ErrPrivilegeValidationFailed, err))
	}

	now, _ := s.now()
	saved := model

	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, repos store.Repositories) error {
		if model.ID == uuid.Nil {
			p, err := domain.NewPrivilege(model, now)
			if err != nil {
				return validationFailure(opSavePrivilege, ErrPrivilegeValidationFailed, err)
			}
			if err := repos.Privileges.Create(ctx, p); err != nil {
				return wrapStoreError("create privilege", err)
			}
			saved.ID = p.ID
			log.Info("privilege created", slog.String("privilege_id", p.ID.String()))
			return nil
		}

		p, err := repos.Privileges.GetByID(ctx, model.ID)
		if errors.Is(err, store.ErrPrivilegeNotFound) {
			return NewRuleError(opSavePrivilege, ErrPrivilegeValidationFailed, msgPrivilegeIDUnknown, nil)
		}
		if err != nil {
			return wrapStoreError("load privilege", err)
		}
		model.ApplyTo(p, now)
		if err := repos.Privileges.Update(ctx, p); err != nil {
			return wrapStoreError("update privilege", err)
		}
		log.Info("privilege updated")
		return nil
	})
	if err != nil {
		return nil, s.fail(log, opSavePrivilege, err)
	}
	return &saved, nil
}

func (s *administrationServiceImpl) GetCardType(ctx context.Context, id uuid.UUID) (*domain.CardType, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if id == uuid.Nil {
		return nil, s.fail(log, opGetCardType,
			NewRuleError(opGetCardType, ErrInvalidIdentifier, msgCardTypeIDRequired, nil))
	}

	var ct *domain.CardType
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, repos store.Repositories) error {
		var err error
		ct, err = repos.CardTypes.GetByID(ctx, id)
		if errors.Is(err, store.ErrCardTypeNotFound) {
			return NewRuleError(opGetCardType, ErrCardTypeNotFound, msgCardTypeNotFound, nil)
		}
		if err != nil {
			return wrapStoreError("load card type", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(log, opGetCardType, err)
	}
	return ct, nil
}

func (s *administrationServiceImpl) ListCardTypes(ctx context.Context) ([]*domain.CardType, error) {
	var list []*domain.CardType
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, repos store.Repositories) error {
		var err error
		list, err = repos.CardTypes.List(ctx)
		if err != nil {
			return wrapStoreError("list card types", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(logger.FromContextOrDefault(ctx, s.logger), "list card types", err)
	}
	return list, nil
}

func (s *administrationServiceImpl) ListPrivileges(ctx context.Context) ([]domain.Privilege, error) {
	var list []domain.Privilege
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, repos store.Repositories) error {
		var err error
		list, err = repos.Privileges.List(ctx)
		if err != nil {
			return wrapStoreError("list privileges", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(logger.FromContextOrDefault(ctx, s.logger), "list privileges", err)
	}
	return list, nil
}

func (s *administrationServiceImpl) FareStrategies() []strategy.Entry {
	return s.catalog.FareStrategies()
}

func (s *administrationServiceImpl) DiscountStrategies() []strategy.Entry {
	return s.catalog.DiscountStrategies()
}

// validationFailure converts a field validation error into a rule error whose
// message names the offending field.
func validationFailure(op string, kind error, err error) error {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return NewRuleError(op, kind, verr.Error(), verr)
	}
	return NewRuleError(op, kind, err.Error(), err)
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
