package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock/testclock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/farecard/internal/domain"
	"github.com/phrazzld/farecard/internal/domain/strategy"
	"github.com/phrazzld/farecard/internal/events"
	"github.com/phrazzld/farecard/internal/platform/logger"
	"github.com/phrazzld/farecard/internal/platform/memory"
	"github.com/phrazzld/farecard/internal/store"
)

var (
	// 08:00 on a Sunday; tests that cross midnight advance the clock.
	testStart = time.Date(2024, time.March, 10, 8, 0, 0, 0, time.UTC)
	fiveYears = 5 * 365 * 24 * time.Hour
)

type fixture struct {
	store     *memory.Store
	clock     *testclock.Clock
	catalog   *strategy.Catalog
	recorder  *events.Recorder
	logs      *logger.TestLogBuffer
	admin     AdministrationService
	ticketing TicketingService
	gate      GateService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log, logs := logger.NewTestLogger(t)
	clk := testclock.NewClock(testStart)
	catalog := strategy.DefaultCatalog(clk)
	recorder := &events.Recorder{}
	emitter := events.NewInMemoryEventEmitter(log)
	emitter.RegisterHandler(recorder)
	st := memory.NewStore(log)

	deps := Dependencies{
		Transactor: st,
		Catalog:    catalog,
		Clock:      clk,
		Emitter:    emitter,
		Logger:     log,
	}

	admin, err := NewAdministrationService(deps)
	require.NoError(t, err)
	ticketing, err := NewTicketingService(deps)
	require.NoError(t, err)
	gate, err := NewGateService(deps)
	require.NoError(t, err)

	return &fixture{
		store:     st,
		clock:     clk,
		catalog:   catalog,
		recorder:  recorder,
		logs:      logs,
		admin:     admin,
		ticketing: ticketing,
		gate:      gate,
	}
}

func regularCardTypeModel() domain.CardTypeModel {
	return domain.CardTypeModel{
		Name:                "Regular",
		Description:         "Stored value card",
		InitialBalance:      decimal.NewFromInt(100),
		MinimumBalance:      decimal.Zero,
		MaximumBalance:      decimal.NewFromInt(10000),
		MinimumReloadAmount: decimal.NewFromInt(100),
		MaximumReloadAmount: decimal.NewFromInt(1000),
		BaseFare:            decimal.NewFromInt(15),
		Validity:            fiveYears,
		FareStrategyID:      strategy.BaseFareStrategyID,
	}
}

// saveCardType persists a card type through the administration engine.
func (f *fixture) saveCardType(t *testing.T, model domain.CardTypeModel) domain.CardTypeModel {
	t.Helper()
	saved, err := f.admin.CreateOrEditCardType(context.Background(), model)
	require.NoError(t, err)
	return *saved
}

func (f *fixture) savePrivilege(t *testing.T, name, pattern string) domain.PrivilegeModel {
	t.Helper()
	saved, err := f.admin.CreateOrEditPrivilege(context.Background(), domain.PrivilegeModel{
		Name:                        name,
		IdentificationNumberPattern: pattern,
	})
	require.NoError(t, err)
	return *saved
}

// seniorCardType returns a discounted card type requiring a senior privilege
// whose identification numbers look like "SC-123456".
func (f *fixture) seniorCardType(t *testing.T) (domain.CardTypeModel, domain.PrivilegeModel) {
	t.Helper()
	privilege := f.savePrivilege(t, "Senior Citizen", `^SC-\d{6}$`)
	model := regularCardTypeModel()
	model.Name = "Senior"
	model.DiscountStrategyID = strategy.SeniorAndPwdDiscountStrategyID
	model.PrivilegeIDs = []uuid.UUID{privilege.ID}
	return f.saveCardType(t, model), privilege
}

func (f *fixture) activate(t *testing.T, cardTypeID uuid.UUID) uuid.UUID {
	t.Helper()
	number := uuid.New()
	_, err := f.ticketing.Activate(context.Background(), number, cardTypeID, uuid.Nil, "")
	require.NoError(t, err)
	return number
}

// issueCard writes a card with an arbitrary balance straight into the store.
func (f *fixture) issueCard(t *testing.T, cardTypeID uuid.UUID, balance decimal.Decimal) uuid.UUID {
	t.Helper()
	number := uuid.New()
	err := f.store.RunInTransaction(context.Background(), func(ctx context.Context, repos store.Repositories) error {
		ct, err := repos.CardTypes.GetByID(ctx, cardTypeID)
		if err != nil {
			return err
		}
		card := domain.NewCard(number, ct, domain.StartOfDay(f.clock.Now()))
		card.Balance = balance
		return repos.Cards.Create(ctx, card)
	})
	require.NoError(t, err)
	return number
}

func (f *fixture) card(t *testing.T, number uuid.UUID) *domain.Card {
	t.Helper()
	var card *domain.Card
	err := f.store.RunInTransaction(context.Background(), func(ctx context.Context, repos store.Repositories) error {
		var err error
		card, err = repos.Cards.GetByNumber(ctx, number)
		return err
	})
	require.NoError(t, err)
	return card
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
