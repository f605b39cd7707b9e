package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/farecard/internal/domain"
	"github.com/phrazzld/farecard/internal/events"
	"github.com/phrazzld/farecard/internal/platform/logger"
	"github.com/phrazzld/farecard/internal/platform/memory"
	"github.com/phrazzld/farecard/internal/store"
)

func TestActivate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ct := f.saveCardType(t, regularCardTypeModel())
	number := uuid.New()

	summary, err := f.ticketing.Activate(context.Background(), number, ct.ID, uuid.Nil, "")

	require.NoError(t, err)
	assert.Equal(t, number, summary.Number)
	assert.True(t, dec("100").Equal(summary.Balance))
	require.NotNil(t, summary.Expiry)
	assert.Equal(t, domain.StartOfDay(testStart).Add(fiveYears), *summary.Expiry)

	card := f.card(t, number)
	assert.Equal(t, domain.StartOfDay(testStart), card.Created)
	assert.Nil(t, card.PrivilegeCard)
	assert.Equal(t, []string{events.TypeCardActivated}, f.recorder.Types())
}

func TestActivateWithoutValidityNeverExpires(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	model := regularCardTypeModel()
	model.Validity = 0
	ct := f.saveCardType(t, model)

	number := f.activate(t, ct.ID)

	summary, err := f.ticketing.CheckBalance(context.Background(), number)
	require.NoError(t, err)
	assert.Nil(t, summary.Expiry)

	f.clock.Advance(50 * 365 * 24 * time.Hour)
	require.NoError(t, f.gate.Enter(context.Background(), number, 1))
}

func TestActivateWithPrivilege(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ct, privilege := f.seniorCardType(t)
	ctx := context.Background()

	t.Run("missing privilege", func(t *testing.T) {
		_, err := f.ticketing.Activate(ctx, uuid.New(), ct.ID, uuid.Nil, "SC-123456")
		assertRule(t, err, ErrCardActivationRejected, msgPrivilegeRequired)
	})

	t.Run("privilege not required by type", func(t *testing.T) {
		_, err := f.ticketing.Activate(ctx, uuid.New(), ct.ID, uuid.New(), "SC-123456")
		assertRule(t, err, ErrCardActivationRejected, msgPrivilegeNotApplicable)
	})

	t.Run("identification number mismatch", func(t *testing.T) {
		_, err := f.ticketing.Activate(ctx, uuid.New(), ct.ID, privilege.ID, "SC-12345")
		assertRule(t, err, ErrCardActivationRejected, msgIdentificationNumber)
	})

	t.Run("accepted", func(t *testing.T) {
		number := uuid.New()
		_, err := f.ticketing.Activate(ctx, number, ct.ID, privilege.ID, "SC-123456")
		require.NoError(t, err)

		card := f.card(t, number)
		require.NotNil(t, card.PrivilegeCard)
		assert.Equal(t, privilege.ID, card.PrivilegeCard.PrivilegeID)
		assert.Equal(t, "SC-123456", card.PrivilegeCard.IdentificationNumber)

		recorded := f.recorder.Events()
		require.NotEmpty(t, recorded)
		var payload events.CardActivated
		require.NoError(t, recorded[len(recorded)-1].UnmarshalPayload(&payload))
		assert.Equal(t, privilege.ID, payload.PrivilegeID)
	})
}

func TestActivateIgnoresPrivilegeWhenNoneRequired(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ct := f.saveCardType(t, regularCardTypeModel())
	number := uuid.New()

	_, err := f.ticketing.Activate(context.Background(), number, ct.ID, uuid.New(), "anything")

	require.NoError(t, err)
	assert.Nil(t, f.card(t, number).PrivilegeCard)
}

func TestActivateRejections(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ct := f.saveCardType(t, regularCardTypeModel())
	existing := f.activate(t, ct.ID)
	ctx := context.Background()

	_, err := f.ticketing.Activate(ctx, uuid.Nil, ct.ID, uuid.Nil, "")
	assertRule(t, err, ErrInvalidIdentifier, msgCardNumberRequired)

	_, err = f.ticketing.Activate(ctx, existing, ct.ID, uuid.Nil, "")
	assertRule(t, err, ErrDuplicateCard, msgCardExists)

	_, err = f.ticketing.Activate(ctx, uuid.New(), uuid.Nil, uuid.Nil, "")
	assertRule(t, err, ErrInvalidIdentifier, msgCardTypeIDRequired)

	_, err = f.ticketing.Activate(ctx, uuid.New(), uuid.New(), uuid.Nil, "")
	assertRule(t, err, ErrCardTypeNotFound, msgCardTypeNotFound)

	assert.Equal(t, []string{events.TypeCardActivated}, f.recorder.Types(), "rejections emit nothing")
	_, ok := f.logs.Find(t, "operation rejected")
	assert.True(t, ok)
}

func TestActivateConcurrentDuplicate(t *testing.T) {
	t.Parallel()

	tx := newMockTransactor()
	svc, err := NewTicketingService(Dependencies{Transactor: tx})
	require.NoError(t, err)

	number := uuid.New()
	ct := &domain.CardType{ID: uuid.New(), InitialBalance: dec("100")}
	tx.Cards.On("GetByNumber", mock.Anything, number).Return(nil, store.ErrCardNotFound)
	tx.CardTypes.On("GetByID", mock.Anything, ct.ID).Return(ct, nil)
	tx.Cards.On("Create", mock.Anything, mock.AnythingOfType("*domain.Card")).
		Return(fmt.Errorf("insert card: %w", store.ErrCardNumberExists))

	_, err = svc.Activate(context.Background(), number, ct.ID, uuid.Nil, "")

	assertRule(t, err, ErrDuplicateCard, msgCardExists)
	assert.ErrorIs(t, err, store.ErrCardNumberExists)
}

func TestCheckBalance(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ct := f.saveCardType(t, regularCardTypeModel())
	number := f.issueCard(t, ct.ID, dec("42.50"))

	summary, err := f.ticketing.CheckBalance(context.Background(), number)
	require.NoError(t, err)
	assert.True(t, dec("42.5").Equal(summary.Balance))

	_, err = f.ticketing.CheckBalance(context.Background(), uuid.New())
	assertRule(t, err, ErrCardNotFound, msgCardNotFound)

	_, err = f.ticketing.CheckBalance(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	assert.Empty(t, f.recorder.Types(), "balance checks emit nothing")
}

func TestReload(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		balance string
		amount  string
		payment string
		want    string
		change  string
	}{
		{"within bounds", "100", "500", "1000", "600", "500"},
		{"exact payment", "100", "100", "100", "200", "0"},
		{"reaches maximum", "9500", "500", "500", "10000", "0"},
		{"excess returned", "9500", "1000", "1000", "10000", "500"},
		{"excess added to change", "9800", "500", "1000", "10000", "800"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			ct := f.saveCardType(t, regularCardTypeModel())
			number := f.issueCard(t, ct.ID, dec(tc.balance))

			receipt, err := f.ticketing.Reload(context.Background(), number, dec(tc.amount), dec(tc.payment))

			require.NoError(t, err)
			assert.True(t, dec(tc.want).Equal(receipt.Balance), "balance %s", receipt.Balance)
			assert.True(t, dec(tc.change).Equal(receipt.Change), "change %s", receipt.Change)
			assert.True(t, dec(tc.amount).Equal(receipt.Amount))
			assert.True(t, dec(tc.want).Equal(f.card(t, number).Balance))
			assert.Equal(t, []string{events.TypeCardReloaded}, f.recorder.Types())
		})
	}
}

func TestReloadRejections(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ct := f.saveCardType(t, regularCardTypeModel())
	number := f.issueCard(t, ct.ID, dec("100"))
	ctx := context.Background()

	_, err := f.ticketing.Reload(ctx, number, dec("99.99"), dec("100"))
	assertRule(t, err, ErrReloadRejected, msgBelowMinimumReload)

	_, err = f.ticketing.Reload(ctx, number, dec("1000.01"), dec("2000"))
	assertRule(t, err, ErrReloadRejected, msgAboveMaximumReload)

	_, err = f.ticketing.Reload(ctx, number, dec("500"), dec("499.99"))
	assertRule(t, err, ErrReloadRejected, msgReloadExceedsPayment)

	_, err = f.ticketing.Reload(ctx, uuid.New(), dec("500"), dec("500"))
	assertRule(t, err, ErrCardNotFound, msgCardNotFound)

	assert.True(t, dec("100").Equal(f.card(t, number).Balance))
	assert.Empty(t, f.recorder.Types())
}

func TestReloadStoreFailure(t *testing.T) {
	t.Parallel()

	tx := newMockTransactor()
	svc, err := NewTicketingService(Dependencies{Transactor: tx})
	require.NoError(t, err)

	card := &domain.Card{
		ID:      uuid.New(),
		Number:  uuid.New(),
		Balance: dec("100"),
		Type:    &domain.CardType{MinimumReloadAmount: dec("100"), MaximumReloadAmount: dec("1000"), MaximumBalance: dec("10000")},
	}
	dbErr := errors.New("deadlock detected")
	tx.Cards.On("GetByNumber", mock.Anything, card.Number).Return(card, nil)
	tx.Cards.On("UpdateBalance", mock.Anything, card.ID, mock.AnythingOfType("decimal.Decimal")).Return(dbErr)

	_, err = svc.Reload(context.Background(), card.Number, dec("500"), dec("500"))

	require.ErrorIs(t, err, dbErr)
	var ruleErr *RuleError
	assert.False(t, errors.As(err, &ruleErr))
}

func TestEmitterFailureDoesNotFailOperation(t *testing.T) {
	t.Parallel()

	log, logs := logger.NewTestLogger(t)
	st := memory.NewStore(log)
	emitter := &MockEventEmitter{}
	emitter.On("EmitEvent", mock.Anything, mock.AnythingOfType("*events.Event")).Return(errors.New("broker down"))

	deps := Dependencies{Transactor: st, Catalog: newFixture(t).catalog, Emitter: emitter, Logger: log}
	admin, err := NewAdministrationService(deps)
	require.NoError(t, err)
	ticketing, err := NewTicketingService(deps)
	require.NoError(t, err)

	ct, err := admin.CreateOrEditCardType(context.Background(), regularCardTypeModel())
	require.NoError(t, err)

	number := uuid.New()
	_, err = ticketing.Activate(context.Background(), number, ct.ID, uuid.Nil, "")
	require.NoError(t, err)

	receipt, err := ticketing.Reload(context.Background(), number, decimal.NewFromInt(100), decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, dec("200").Equal(receipt.Balance))

	emitter.AssertNumberOfCalls(t, "EmitEvent", 2)
	assert.Equal(t, 2, logs.Count(t, "failed to emit event"))
	entry, ok := logs.Find(t, "failed to emit event")
	require.True(t, ok)
	assert.Equal(t, "ERROR", entry["level"])
}

func assertRule(t *testing.T, err error, kind error, message string) {
	t.Helper()
	require.ErrorIs(t, err, kind)
	var ruleErr *RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, message, ruleErr.Message)
}
