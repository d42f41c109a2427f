package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Money is a decimal amount in a specific currency.
// Shopify sends amounts as decimal strings in major units ("29.90").
type Money struct {
	Amount   decimal.Decimal
	Currency currency.Unit
}

// ParseMoney converts a wire amount and ISO 4217 code into Money.
// An empty amount is treated as zero.
func ParseMoney(amount, currencyCode string) (Money, error) {
	amount = strings.TrimSpace(amount)
	d := decimal.Zero
	if amount != "" {
		var err error
		d, err = decimal.NewFromString(amount)
		if err != nil {
			return Money{}, fmt.Errorf("amount[%s] is not a decimal: %w", amount, err)
		}
	}

	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return Money{}, fmt.Errorf("currency[%s] is not valid: %w", currencyCode, err)
	}

	return Money{Amount: d, Currency: unit}, nil
}

// String renders the amount with the currency's standard scale, e.g. "EUR 29.90".
func (m Money) String() string {
	scale, _ := currency.Standard.Rounding(m.Currency)
	return fmt.Sprintf("%s %s", m.Currency, m.Amount.StringFixed(int32(scale)))
}

// Cents returns the amount in minor units, rounded half away from zero.
// Examples: "99.00" → 9900, "0.01" → 1.
func (m Money) Cents() int64 {
	scale, _ := currency.Standard.Rounding(m.Currency)
	return m.Amount.Shift(int32(scale)).Round(0).IntPart()
}
