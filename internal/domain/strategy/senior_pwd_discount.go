package strategy

import (
	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/shopspring/decimal"

	"github.com/phrazzld/farecard/internal/domain"
)

// SeniorAndPwdDiscountStrategyID identifies SeniorAndPwdDiscountStrategy in
// card type records.
var SeniorAndPwdDiscountStrategyID = uuid.MustParse("c63b4fb4-2339-4eea-9bdc-1c185f47f153")

var (
	seniorBaseDiscount    = decimal.RequireFromString("0.20")
	seniorLoyaltyDiscount = decimal.RequireFromString("0.03")
)

// Completed trips earlier the same day that earn the loyalty increment.
const (
	seniorLoyaltyMinTrips = 1
	seniorLoyaltyMaxTrips = 3
)

// SeniorAndPwdDiscountStrategy grants 20% off every trip, and a further 3%
// when the card has completed one to three trips today.
type SeniorAndPwdDiscountStrategy struct {
	clock clock.Clock
}

// NewSeniorAndPwdDiscountStrategy creates the strategy. A nil clock uses the
// wall clock.
func NewSeniorAndPwdDiscountStrategy(clk clock.Clock) *SeniorAndPwdDiscountStrategy {
	if clk == nil {
		clk = clock.WallClock
	}
	return &SeniorAndPwdDiscountStrategy{clock: clk}
}

// ComputePercentageDiscount implements DiscountStrategy.
func (s *SeniorAndPwdDiscountStrategy) ComputePercentageDiscount(card *domain.Card) (decimal.Decimal, error) {
	if card == nil {
		return decimal.Zero, ErrInvalidCard
	}

	discount := seniorBaseDiscount
	trips := card.CompletedTripsOn(s.clock.Now())
	if trips >= seniorLoyaltyMinTrips && trips <= seniorLoyaltyMaxTrips {
		discount = discount.Add(seniorLoyaltyDiscount)
	}
	return discount, nil
}
