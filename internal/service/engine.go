package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/phrazzld/farecard/internal/domain"
	"github.com/phrazzld/farecard/internal/domain/strategy"
	"github.com/phrazzld/farecard/internal/events"
	"github.com/phrazzld/farecard/internal/redact"
	"github.com/phrazzld/farecard/internal/store"
)

// Dependencies are the collaborators shared by the engines.
type Dependencies struct {
	// Transactor runs each operation atomically. Required.
	Transactor store.Transactor

	// Catalog resolves fare and discount strategies. Required by the
	// administration and gate engines.
	Catalog *strategy.Catalog

	// Clock supplies now and today. Defaults to the wall clock.
	Clock clock.Clock

	// Emitter receives events after commit. Optional.
	Emitter events.EventEmitter

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

type engine struct {
	tx      store.Transactor
	catalog *strategy.Catalog
	clock   clock.Clock
	emitter events.EventEmitter
	logger  *slog.Logger
}

func newEngine(component string, deps Dependencies, needsCatalog bool) (engine, error) {
	if deps.Transactor == nil {
		return engine{}, domain.NewValidationError("Transactor", "cannot be nil", domain.ErrValidation)
	}
	if needsCatalog && deps.Catalog == nil {
		return engine{}, domain.NewValidationError("Catalog", "cannot be nil", domain.ErrValidation)
	}

	clk := deps.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	l := deps.Logger
	if l == nil {
		l = slog.Default()
	}

	return engine{
		tx:      deps.Transactor,
		catalog: deps.Catalog,
		clock:   clk,
		emitter: deps.Emitter,
		logger:  l.With(slog.String("component", component)),
	}, nil
}

// now returns the current instant and the start of its day.
func (e *engine) now() (time.Time, time.Time) {
	now := e.clock.Now()
	return now, domain.StartOfDay(now)
}

// fail logs a failed operation and returns err unchanged. Rule violations are
// expected outcomes and log at warn; anything else is a store or programming
// failure.
func (e *engine) fail(log *slog.Logger, op string, err error) error {
	var ruleErr *RuleError
	if errors.As(err, &ruleErr) {
		attrs := []any{
			slog.String("operation", op),
			slog.String("kind", ruleErr.Kind.Error()),
			slog.String("reason", ruleErr.Message),
		}
		if ruleErr.Err != nil {
			attrs = append(attrs, slog.String("cause", ruleErr.Err.Error()))
		}
		log.Warn("operation rejected", attrs...)
		return err
	}
	log.Error("operation failed",
		slog.String("operation", op),
		slog.String("error", redact.Error(err)))
	return err
}

// emit publishes an event for a committed change. Failures are logged only:
// the change is already durable.
func (e *engine) emit(ctx context.Context, log *slog.Logger, eventType string, number uuid.UUID, payload any, at time.Time) {
	if e.emitter == nil {
		return
	}
	event, err := events.NewEvent(eventType, number, payload, at)
	if err != nil {
		log.Error("failed to build event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
		return
	}
	if err := e.emitter.EmitEvent(ctx, event); err != nil {
		log.Error("failed to emit event",
			slog.String("event_type", eventType),
			slog.String("event_id", event.ID.String()),
			slog.String("error", err.Error()))
	}
}

// loadCard resolves a card by number inside a transaction, mapping absence to
// ErrCardNotFound.
func loadCard(ctx context.Context, repos store.Repositories, op string, number uuid.UUID) (*domain.Card, error) {
	card, err := repos.Cards.GetByNumber(ctx, number)
	if errors.Is(err, store.ErrCardNotFound) {
		return nil, NewRuleError(op, ErrCardNotFound, msgCardNotFound, nil)
	}
	if err != nil {
		return nil, wrapStoreError("load card", err)
	}
	if card.Type == nil {
		return nil, wrapStoreError("load card", errors.New("card type missing from card aggregate"))
	}
	return card, nil
}

func wrapStoreError(action string, err error) error {
	return fmt.Errorf("failed to %s: %w", action, err)
}
