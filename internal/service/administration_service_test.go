package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/farecard/internal/domain"
	"github.com/phrazzld/farecard/internal/domain/strategy"
	"github.com/phrazzld/farecard/internal/store"
)

func TestNewAdministrationServiceRequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := NewAdministrationService(Dependencies{Catalog: strategy.NewCatalog()})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = NewAdministrationService(Dependencies{Transactor: newMockTransactor()})
	assert.ErrorIs(t, err, domain.ErrValidation)

	svc, err := NewAdministrationService(Dependencies{Transactor: newMockTransactor(), Catalog: strategy.NewCatalog()})
	assert.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestCreateCardType(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	privilege := f.savePrivilege(t, "Senior Citizen", "")

	model := regularCardTypeModel()
	model.PrivilegeIDs = []uuid.UUID{privilege.ID, privilege.ID}

	saved, err := f.admin.CreateOrEditCardType(ctx, model)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, saved.ID)
	assert.Equal(t, []uuid.UUID{privilege.ID}, saved.PrivilegeIDs, "duplicate ids collapse")

	ct, err := f.admin.GetCardType(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Regular", ct.Name)
	assert.Equal(t, fiveYears, ct.Validity)
	assert.True(t, dec("15").Equal(ct.BaseFare))
	require.Len(t, ct.Privileges, 1)
	assert.Equal(t, privilege.ID, ct.Privileges[0].ID)

	_, ok := f.logs.Find(t, "card type created")
	assert.True(t, ok)
}

func TestCreateOrEditCardTypeValidationOrder(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(m *domain.CardTypeModel)
		field  string
	}{
		{"blank name", func(m *domain.CardTypeModel) { m.Name = " " }, "Name"},
		{"name too long", func(m *domain.CardTypeModel) { m.Name = strings.Repeat("a", 51) }, "Name"},
		{"description too long", func(m *domain.CardTypeModel) { m.Description = strings.Repeat("a", 256) }, "Description"},
		{"minimum balance above maximum", func(m *domain.CardTypeModel) { m.MinimumBalance = dec("10000.01") }, "MinimumBalance"},
		{"negative initial balance", func(m *domain.CardTypeModel) { m.InitialBalance = dec("-0.01") }, "InitialBalance"},
		{"minimum reload above maximum", func(m *domain.CardTypeModel) { m.MinimumReloadAmount = dec("1001") }, "MinimumReloadAmount"},
		{"base fare above initial balance", func(m *domain.CardTypeModel) { m.BaseFare = dec("100.01") }, "BaseFare"},
		{"negative validity", func(m *domain.CardTypeModel) { m.Validity = -time.Second }, "Validity"},
		{"name wins over base fare", func(m *domain.CardTypeModel) {
			m.Name = ""
			m.BaseFare = dec("-1")
		}, "Name"},
		{"minimum balance wins over base fare", func(m *domain.CardTypeModel) {
			m.MinimumBalance = dec("-1")
			m.BaseFare = dec("-1")
		}, "MinimumBalance"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tx := newMockTransactor()
			svc, err := NewAdministrationService(Dependencies{Transactor: tx, Catalog: strategy.DefaultCatalog(nil)})
			require.NoError(t, err)

			model := regularCardTypeModel()
			tc.mutate(&model)

			_, err = svc.CreateOrEditCardType(context.Background(), model)

			require.ErrorIs(t, err, ErrCardTypeValidationFailed)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
			tx.CardTypes.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateOrEditCardTypeStrategyResolution(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	model := regularCardTypeModel()
	model.FareStrategyID = uuid.New()
	_, err := f.admin.CreateOrEditCardType(ctx, model)
	assert.ErrorIs(t, err, ErrCardTypeValidationFailed)
	assert.ErrorIs(t, err, strategy.ErrStrategyNotFound)

	model = regularCardTypeModel()
	model.FareStrategyID = strategy.SeniorAndPwdDiscountStrategyID
	_, err = f.admin.CreateOrEditCardType(ctx, model)
	assert.ErrorIs(t, err, strategy.ErrStrategyNotFound, "a discount strategy cannot price fares")

	model = regularCardTypeModel()
	model.DiscountStrategyID = uuid.New()
	_, err = f.admin.CreateOrEditCardType(ctx, model)
	assert.ErrorIs(t, err, ErrCardTypeValidationFailed)
	assert.ErrorIs(t, err, strategy.ErrStrategyNotFound)

	list, err := f.admin.ListCardTypes(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateOrEditCardTypeUnknownPrivilege(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	known := f.savePrivilege(t, "Student", "")

	model := regularCardTypeModel()
	model.PrivilegeIDs = []uuid.UUID{known.ID, uuid.New()}

	_, err := f.admin.CreateOrEditCardType(context.Background(), model)

	require.ErrorIs(t, err, ErrCardTypeValidationFailed)
	var ruleErr *RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, msgPrivilegeIDUnknown, ruleErr.Message)

	list, err := f.admin.ListCardTypes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list, "a rejected card type is not persisted")
}

func TestEditCardType(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	senior := f.savePrivilege(t, "Senior", "")
	pwd := f.savePrivilege(t, "PWD", "")
	student := f.savePrivilege(t, "Student", "")

	model := regularCardTypeModel()
	model.PrivilegeIDs = []uuid.UUID{senior.ID, pwd.ID}
	created := f.saveCardType(t, model)

	created.BaseFare = dec("20")
	created.PrivilegeIDs = []uuid.UUID{pwd.ID, student.ID}
	edited := f.saveCardType(t, created)
	assert.Equal(t, created.ID, edited.ID)

	ct, err := f.admin.GetCardType(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, dec("20").Equal(ct.BaseFare))
	var ids []uuid.UUID
	for _, p := range ct.Privileges {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{pwd.ID, student.ID}, ids)

	// Applying the same set again must not duplicate association rows.
	f.saveCardType(t, edited)
	f.saveCardType(t, edited)
	ct, err = f.admin.GetCardType(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, ct.Privileges, 2)

	edited.PrivilegeIDs = nil
	f.saveCardType(t, edited)
	ct, err = f.admin.GetCardType(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, ct.Privileges)
	assert.False(t, ct.RequiresPrivilege())
}

func TestEditCardTypeIdempotentReconciliation(t *testing.T) {
	t.Parallel()

	tx := newMockTransactor()
	svc, err := NewAdministrationService(Dependencies{Transactor: tx, Catalog: strategy.DefaultCatalog(nil)})
	require.NoError(t, err)

	privilege := domain.Privilege{ID: uuid.New(), Name: "Senior"}
	existing := &domain.CardType{ID: uuid.New(), Name: "Senior", Privileges: []domain.Privilege{privilege}}
	model := regularCardTypeModel()
	model.ID = existing.ID
	model.PrivilegeIDs = []uuid.UUID{privilege.ID}

	tx.Privileges.On("GetByIDs", mock.Anything, []uuid.UUID{privilege.ID}).Return([]domain.Privilege{privilege}, nil)
	tx.CardTypes.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)
	tx.CardTypes.On("Update", mock.Anything, existing).Return(nil)

	saved, err := svc.CreateOrEditCardType(context.Background(), model)

	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{privilege.ID}, saved.PrivilegeIDs)
	tx.CardTypes.AssertNotCalled(t, "AddPrivileges", mock.Anything, mock.Anything, mock.Anything)
	tx.CardTypes.AssertNotCalled(t, "RemovePrivileges", mock.Anything, mock.Anything, mock.Anything)
	tx.CardTypes.AssertExpectations(t)
}

func TestEditCardTypeUnknownID(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	model := regularCardTypeModel()
	model.ID = uuid.New()

	_, err := f.admin.CreateOrEditCardType(context.Background(), model)

	assert.ErrorIs(t, err, ErrCardTypeValidationFailed)
	assert.ErrorIs(t, err, ErrCardTypeNotFound)
}

func TestCreateCardTypeStoreFailure(t *testing.T) {
	t.Parallel()

	tx := newMockTransactor()
	svc, err := NewAdministrationService(Dependencies{Transactor: tx, Catalog: strategy.DefaultCatalog(nil)})
	require.NoError(t, err)

	dbErr := errors.New("connection reset")
	tx.CardTypes.On("Create", mock.Anything, mock.AnythingOfType("*domain.CardType")).Return(dbErr)

	_, err = svc.CreateOrEditCardType(context.Background(), regularCardTypeModel())

	require.ErrorIs(t, err, dbErr)
	var ruleErr *RuleError
	assert.False(t, errors.As(err, &ruleErr), "store failures are not rule violations")
	tx.Privileges.AssertNotCalled(t, "GetByIDs", mock.Anything, mock.Anything)
}

func TestCreateOrEditPrivilege(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	created := f.savePrivilege(t, "PWD", `^\d{4}-\d{4}$`)
	assert.NotEqual(t, uuid.Nil, created.ID)

	created.Description = "Persons with disability"
	edited, err := f.admin.CreateOrEditPrivilege(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, created.ID, edited.ID)

	list, err := f.admin.ListPrivileges(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Persons with disability", list[0].Description)

	_, err = f.admin.CreateOrEditPrivilege(ctx, domain.PrivilegeModel{ID: uuid.New(), Name: "Ghost"})
	assert.ErrorIs(t, err, ErrPrivilegeValidationFailed)
}

func TestCreateOrEditPrivilegeInvalidPatternNeverPersisted(t *testing.T) {
	t.Parallel()

	cases := map[string]domain.PrivilegeModel{
		"unbalanced class, new":      {Name: "Senior", IdentificationNumberPattern: "[A-Z"},
		"unbalanced group, existing": {ID: uuid.New(), Name: "Senior", IdentificationNumberPattern: "(SC-"},
		"blank name":                 {Name: "", IdentificationNumberPattern: `\d+`},
		"long description":           {Name: "Senior", Description: strings.Repeat("x", 300)},
	}

	for name, model := range cases {
		model := model
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			tx := newMockTransactor()
			svc, err := NewAdministrationService(Dependencies{Transactor: tx, Catalog: strategy.NewCatalog()})
			require.NoError(t, err)

			_, err = svc.CreateOrEditPrivilege(context.Background(), model)

			assert.ErrorIs(t, err, ErrPrivilegeValidationFailed)
			tx.Privileges.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			tx.Privileges.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
			tx.Privileges.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		})
	}
}

func TestGetCardTypeErrors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.admin.GetCardType(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = f.admin.GetCardType(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrCardTypeNotFound)
}

func TestListErrors(t *testing.T) {
	t.Parallel()

	tx := newMockTransactor()
	svc, err := NewAdministrationService(Dependencies{Transactor: tx, Catalog: strategy.NewCatalog()})
	require.NoError(t, err)

	dbErr := errors.New("timeout")
	tx.CardTypes.On("List", mock.Anything).Return(nil, dbErr)
	tx.Privileges.On("List", mock.Anything).Return(nil, dbErr)

	_, err = svc.ListCardTypes(context.Background())
	assert.ErrorIs(t, err, dbErr)
	_, err = svc.ListPrivileges(context.Background())
	assert.ErrorIs(t, err, dbErr)
}

func TestListCardTypesOrdered(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	for _, name := range []string{"Student", "Adult", "Senior"} {
		model := regularCardTypeModel()
		model.Name = name
		f.saveCardType(t, model)
	}

	list, err := f.admin.ListCardTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"Adult", "Senior", "Student"}, []string{list[0].Name, list[1].Name, list[2].Name})
}

func TestStrategyListings(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	assert.Equal(t, []strategy.Entry{{DisplayName: "Base Fare Scheme", ID: strategy.BaseFareStrategyID}},
		f.admin.FareStrategies())
	assert.Equal(t, []strategy.Entry{{DisplayName: "Senior & PWD Discount Scheme", ID: strategy.SeniorAndPwdDiscountStrategyID}},
		f.admin.DiscountStrategies())
}

func TestCardTypeBoundariesAccepted(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	model := regularCardTypeModel()
	model.MinimumBalance = model.MaximumBalance
	model.InitialBalance = model.MaximumBalance
	model.BaseFare = model.InitialBalance
	model.MinimumReloadAmount = decimal.Zero
	model.Validity = 0

	saved := f.saveCardType(t, model)
	assert.NotEqual(t, uuid.Nil, saved.ID)

	err := f.store.RunInTransaction(context.Background(), func(ctx context.Context, repos store.Repositories) error {
		ct, err := repos.CardTypes.GetByID(ctx, saved.ID)
		require.NoError(t, err)
		assert.Zero(t, ct.Validity)
		return nil
	})
	require.NoError(t, err)
}
