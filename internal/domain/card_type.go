package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CardType is a tariff definition: balance and reload bounds, the base fare,
// how long activated cards stay valid, which strategies price a trip and
// which privileges a holder must present at activation.
type CardType struct {
	ID                  uuid.UUID       `json:"id"`
	Name                string          `json:"name"`
	Description         string          `json:"description,omitempty"`
	InitialBalance      decimal.Decimal `json:"initial_balance"`
	MinimumBalance      decimal.Decimal `json:"minimum_balance"`
	MaximumBalance      decimal.Decimal `json:"maximum_balance"`
	MinimumReloadAmount decimal.Decimal `json:"minimum_reload_amount"`
	MaximumReloadAmount decimal.Decimal `json:"maximum_reload_amount"`
	BaseFare            decimal.Decimal `json:"base_fare"`

	// Validity is added to the activation date to compute expiry.
	// Zero means activated cards never expire.
	Validity time.Duration `json:"validity"`

	FareStrategyID uuid.UUID `json:"fare_strategy_id"`

	// DiscountStrategyID is uuid.Nil when the card type has no discount.
	DiscountStrategyID uuid.UUID `json:"discount_strategy_id"`

	// Privileges is the set of privileges required at activation, derived
	// from the card_type_privileges association rows.
	Privileges []Privilege `json:"privileges,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CardTypePrivilege associates a card type with one required privilege.
// The pair is the identity of the association.
type CardTypePrivilege struct {
	CardTypeID  uuid.UUID `json:"card_type_id"`
	PrivilegeID uuid.UUID `json:"privilege_id"`
}

// RequiresPrivilege reports whether activation needs a privilege.
func (ct *CardType) RequiresPrivilege() bool {
	return len(ct.Privileges) > 0
}

// HasDiscount reports whether a discount strategy applies to exits.
func (ct *CardType) HasDiscount() bool {
	return ct.DiscountStrategyID != uuid.Nil
}

// FindPrivilege returns the required privilege with the given id.
func (ct *CardType) FindPrivilege(id uuid.UUID) (Privilege, bool) {
	for _, p := range ct.Privileges {
		if p.ID == id {
			return p, true
		}
	}
	return Privilege{}, false
}

// Associations returns the association rows for the current privilege set.
func (ct *CardType) Associations() []CardTypePrivilege {
	rows := make([]CardTypePrivilege, 0, len(ct.Privileges))
	for _, p := range ct.Privileges {
		rows = append(rows, CardTypePrivilege{CardTypeID: ct.ID, PrivilegeID: p.ID})
	}
	return rows
}

// ExpiryFrom returns the expiry of a card activated on the given day, or nil
// when the card type never expires.
func (ct *CardType) ExpiryFrom(activated time.Time) *time.Time {
	if ct.Validity <= 0 {
		return nil
	}
	expiry := activated.Add(ct.Validity)
	return &expiry
}

// ReconcilePrivileges replaces the privilege set with next and reports the
// privilege ids whose association rows must be added and removed. Duplicate
// ids in next are collapsed, so applying the same set twice yields no changes.
func (ct *CardType) ReconcilePrivileges(next []Privilege) (added, removed []uuid.UUID) {
	current := make(map[uuid.UUID]struct{}, len(ct.Privileges))
	for _, p := range ct.Privileges {
		current[p.ID] = struct{}{}
	}

	wanted := make(map[uuid.UUID]struct{}, len(next))
	deduped := make([]Privilege, 0, len(next))
	for _, p := range next {
		if _, dup := wanted[p.ID]; dup {
			continue
		}
		wanted[p.ID] = struct{}{}
		deduped = append(deduped, p)
		if _, ok := current[p.ID]; !ok {
			added = append(added, p.ID)
		}
	}

	for _, p := range ct.Privileges {
		if _, ok := wanted[p.ID]; !ok {
			removed = append(removed, p.ID)
		}
	}

	ct.Privileges = deduped
	return added, removed
}

// CardTypeModel is the administrative input and output shape of a card type.
// A nil ID asks for a new card type to be created.
type CardTypeModel struct {
	ID                  uuid.UUID       `json:"id"`
	Name                string          `json:"name"`
	Description         string          `json:"description,omitempty"`
	InitialBalance      decimal.Decimal `json:"initial_balance"`
	MinimumBalance      decimal.Decimal `json:"minimum_balance"`
	MaximumBalance      decimal.Decimal `json:"maximum_balance"`
	MinimumReloadAmount decimal.Decimal `json:"minimum_reload_amount"`
	MaximumReloadAmount decimal.Decimal `json:"maximum_reload_amount"`
	BaseFare            decimal.Decimal `json:"base_fare"`
	Validity            time.Duration   `json:"validity"`
	FareStrategyID      uuid.UUID       `json:"fare_strategy_id"`
	DiscountStrategyID  uuid.UUID       `json:"discount_strategy_id"`
	PrivilegeIDs        []uuid.UUID     `json:"privilege_ids,omitempty"`
}

// Validate checks the model's fields and returns a *ValidationError for the
// first rule violated. Rules are evaluated in a fixed order.
func (m *CardTypeModel) Validate() error {
	if err := validateName(m.Name); err != nil {
		return err
	}
	if err := validateDescription(m.Description); err != nil {
		return err
	}
	if m.MinimumBalance.IsNegative() || m.MinimumBalance.GreaterThan(m.MaximumBalance) {
		return NewValidationError("MinimumBalance",
			"minimum balance should be greater than or equal to zero but not more than maximum balance", ErrValidation)
	}
	if m.InitialBalance.IsNegative() || m.InitialBalance.GreaterThan(m.MaximumBalance) {
		return NewValidationError("InitialBalance",
			"initial balance should be greater than or equal to zero but not more than maximum balance", ErrValidation)
	}
	if m.MinimumReloadAmount.IsNegative() || m.MinimumReloadAmount.GreaterThan(m.MaximumReloadAmount) {
		return NewValidationError("MinimumReloadAmount",
			"minimum reload amount should be greater than or equal to zero but not more than maximum reload amount", ErrValidation)
	}
	if m.BaseFare.IsNegative() || m.BaseFare.GreaterThan(m.InitialBalance) {
		return NewValidationError("BaseFare",
			"base fare should be greater than or equal to zero but not more than initial balance", ErrValidation)
	}
	if m.Validity < 0 {
		return NewValidationError("Validity", "validity should not be negative", ErrValidation)
	}
	return nil
}

// ApplyTo overwrites the scalar fields of ct with the model's values.
// Privilege associations are reconciled separately.
func (m *CardTypeModel) ApplyTo(ct *CardType, now time.Time) {
	ct.Name = m.Name
	ct.Description = m.Description
	ct.InitialBalance = m.InitialBalance
	ct.MinimumBalance = m.MinimumBalance
	ct.MaximumBalance = m.MaximumBalance
	ct.MinimumReloadAmount = m.MinimumReloadAmount
	ct.MaximumReloadAmount = m.MaximumReloadAmount
	ct.BaseFare = m.BaseFare
	ct.Validity = m.Validity
	ct.FareStrategyID = m.FareStrategyID
	ct.DiscountStrategyID = m.DiscountStrategyID
	ct.UpdatedAt = now
}

// NewCardType creates a card type from a validated model with a fresh ID and
// the given privileges as its initial associations.
func NewCardType(m CardTypeModel, privileges []Privilege, now time.Time) (*CardType, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	ct := &CardType{
		ID:        uuid.New(),
		CreatedAt: now,
	}
	m.ApplyTo(ct, now)
	ct.ReconcilePrivileges(privileges)
	return ct, nil
}

// ModelOf returns the administrative model of an existing card type.
func ModelOf(ct *CardType) CardTypeModel {
	ids := make([]uuid.UUID, 0, len(ct.Privileges))
	for _, p := range ct.Privileges {
		ids = append(ids, p.ID)
	}
	return CardTypeModel{
		ID:                  ct.ID,
		Name:                ct.Name,
		Description:         ct.Description,
		InitialBalance:      ct.InitialBalance,
		MinimumBalance:      ct.MinimumBalance,
		MaximumBalance:      ct.MaximumBalance,
		MinimumReloadAmount: ct.MinimumReloadAmount,
		MaximumReloadAmount: ct.MaximumReloadAmount,
		BaseFare:            ct.BaseFare,
		Validity:            ct.Validity,
		FareStrategyID:      ct.FareStrategyID,
		DiscountStrategyID:  ct.DiscountStrategyID,
		PrivilegeIDs:        ids,
	}
}
