package strategy

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phrazzld/farecard/internal/domain"
)

// BaseFareStrategyID identifies BaseFareStrategy in card type records.
var BaseFareStrategyID = uuid.MustParse("dd37ef03-aec3-4c8f-9d18-c526f3fc6b46")

// BaseFareStrategy charges the card type's flat base fare regardless of the
// stations travelled.
type BaseFareStrategy struct{}

// ComputeFare implements FareStrategy.
func (BaseFareStrategy) ComputeFare(card *domain.Card, _, _ int) (decimal.Decimal, error) {
	if card == nil {
		return decimal.Zero, ErrInvalidCard
	}
	if card.Type == nil {
		return decimal.Zero, ErrInvalidCardType
	}
	return card.Type.BaseFare, nil
}
