package valuation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// StockSplit is a corporate action: From old units become To new units
// effective on Date.
//
// A 2:1 split is a consolidation (two old units become one), 1:2 a forward
// split.
type StockSplit struct {
	Date Date            `json:"date"`
	From decimal.Decimal `json:"fromAmount"`
	To   decimal.Decimal `json:"toAmount"`
}

// NewStockSplit creates a split of ratio from:to.
func NewStockSplit[T int | int64 | float64 | decimal.Decimal](on Date, from, to T) StockSplit {
	return StockSplit{Date: on, From: newDecimal(from), To: newDecimal(to)}
}

// Ratio returns From/To, the factor applied to prices of activities
// predating the split.
func (s StockSplit) Ratio() Quantity { return Quantity{value: s.From.Div(s.To)} }

// restate converts a pre-split quantity and unit price into post-split terms.
// It multiplies before dividing so that 1:3 style ratios stay exact on whole
// positions.
func (s StockSplit) restate(q Quantity, price Money) (Quantity, Money) {
	from, to := Quantity{value: s.From}, Quantity{value: s.To}
	return q.Mul(to).Div(from), price.Mul(from).Div(to)
}

// Validate checks that both sides of the ratio are positive.
func (s StockSplit) Validate() error {
	if !s.From.IsPositive() || !s.To.IsPositive() {
		return fmt.Errorf("invalid stock split on %s: ratio %s:%s must be positive", s.Date, s.From, s.To)
	}
	return nil
}

// String is the identity of the split, used as trace reason.
func (s StockSplit) String() string {
	return fmt.Sprintf("Stock split on %s (%s:%s)", s.Date, s.From, s.To)
}
