// Package planner sizes market buy orders from a fiat budget.
package planner

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"krakendca/internal/domain"
)

var (
	// ErrInsufficientFunds the remaining balance does not cover the budget.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrBelowMinimumOrder the floored volume is below the pair minimum.
	ErrBelowMinimumOrder = errors.New("volume below minimum order size")
	// ErrNonPositiveAmount the configured budget is zero or negative.
	ErrNonPositiveAmount = errors.New("configured amount must be positive")
)

// Plan computes the purchase volume for a fiat budget at the current price.
// The volume is rounded DOWN to the pair precision so the order never spends
// more than the configured amount; the small unspent remainder is the price
// of that guarantee.
func Plan(pair string, euroAmount, availableBalance, price decimal.Decimal) (domain.PurchaseOrder, error) {
	if !euroAmount.IsPositive() {
		return domain.PurchaseOrder{}, errors.Wrapf(ErrNonPositiveAmount, "%s: amount %s", pair, euroAmount.String())
	}
	if !price.IsPositive() {
		return domain.PurchaseOrder{}, errors.Errorf("%s: cannot plan against non-positive price %s", pair, price.String())
	}
	if euroAmount.GreaterThan(availableBalance) {
		return domain.PurchaseOrder{}, errors.Wrapf(ErrInsufficientFunds,
			"%s: required %s EUR, available %s EUR", pair, euroAmount.String(), availableBalance.String())
	}

	rules := domain.RulesFor(pair)
	volume := euroAmount.Div(price).RoundFloor(rules.VolumePrecision)

	if volume.IsZero() || volume.LessThan(rules.MinVolume) {
		return domain.PurchaseOrder{}, errors.Wrapf(ErrBelowMinimumOrder,
			"%s: volume %s, minimum %s", pair, volume.String(), rules.MinVolume.String())
	}

	return domain.PurchaseOrder{Pair: pair, Volume: volume, EuroAmount: euroAmount}, nil
}

// IsPlanningError reports whether err is a sizing rejection rather than an
// exchange or infrastructure failure.
func IsPlanningError(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrBelowMinimumOrder) ||
		errors.Is(err, ErrNonPositiveAmount)
}
