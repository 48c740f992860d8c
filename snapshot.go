package valuation

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// CalculatedSnapshot is the valuation of a holding on a single day.
type CalculatedSnapshot struct {
	Date             Date
	Quantity         Quantity
	TotalValue       Money // Quantity * CurrentUnitPrice
	CurrentUnitPrice Money
	TotalInvested    Money // cost basis of the units held
	Oversold         bool  // more units were disposed than ever held
}

func (s CalculatedSnapshot) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("date", s.Date)
	w.Append("quantity", s.Quantity)
	w.Append("totalValue", s.TotalValue)
	w.Append("currentUnitPrice", s.CurrentUnitPrice)
	w.Append("totalInvested", s.TotalInvested)
	w.Optional("oversold", s.Oversold)
	return w.MarshalJSON()
}

// Valuation is the day by day valuation history of a holding.
type Valuation struct {
	Symbol        string
	Name          string
	DataSource    string
	AssetClass    string
	Currency      string // the reporting currency
	ActivityCount int    // all activities, including cash only ones
	Snapshots     []CalculatedSnapshot
}

// Latest returns the last snapshot, if any.
func (v *Valuation) Latest() (CalculatedSnapshot, bool) {
	if len(v.Snapshots) == 0 {
		return CalculatedSnapshot{}, false
	}
	return v.Snapshots[len(v.Snapshots)-1], true
}

// Calculator produces valuation snapshots from adjusted activities.
//
// It only reads adjusted fields: the pipeline must have run on the holding
// first.
type Calculator struct {
	exchange Exchange
	lookback int
	method   CostBasisMethod
	log      *zap.SugaredLogger
}

// CalculatorOption configures a Calculator.
type CalculatorOption func(*Calculator)

// WithCalculatorLogger sets the calculator logger.
func WithCalculatorLogger(log *zap.SugaredLogger) CalculatorOption {
	return func(c *Calculator) { c.log = log }
}

// WithLookback bounds how many days a market price can be carried forward,
// zero means no bound.
func WithLookback(days int) CalculatorOption {
	return func(c *Calculator) { c.lookback = days }
}

// WithCostBasis sets the method used to compute the invested amount.
func WithCostBasis(m CostBasisMethod) CalculatorOption {
	return func(c *Calculator) { c.method = m }
}

// NewCalculator creates a calculator converting money with 'exchange'.
func NewCalculator(exchange Exchange, opts ...CalculatorOption) *Calculator {
	if exchange == nil {
		exchange = Identity{}
	}
	c := &Calculator{
		exchange: exchange,
		method:   AverageCost,
		log:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Calculate returns one snapshot per day between the first and the last
// position activity of the holding, both included, valued in 'currency'.
//
// A holding without symbol profile or without position activity has no
// snapshot; this is not an error.
func (c *Calculator) Calculate(ctx context.Context, h *Holding, currency string) (*Valuation, error) {
	return c.CalculateUntil(ctx, h, currency, Date{})
}

// CalculateUntil is like Calculate but extends the snapshots up to 'until'
// when it is after the last activity.
func (c *Calculator) CalculateUntil(ctx context.Context, h *Holding, currency string, until Date) (*Valuation, error) {
	v := &Valuation{Currency: currency, ActivityCount: h.ActivityCount()}

	profile, ok := h.Profile()
	if !ok {
		c.log.Warnw("skipping holding without symbol profile", "activities", v.ActivityCount)
		return v, nil
	}
	v.Symbol, v.Name, v.DataSource, v.AssetClass = profile.Symbol, profile.Name, profile.DataSource, profile.AssetClass
	if profile.Currency == "" {
		c.log.Warnw("skipping holding without currency", "symbol", v.Symbol, "activities", v.ActivityCount)
		return v, nil
	}

	positions := h.Positions()
	if len(positions) == 0 {
		return v, nil
	}
	slices.SortStableFunc(positions, func(a, b PositionActivity) int { return a.When().Compare(b.When()) })

	span := NewRange(positions[0].When(), positions[len(positions)-1].When())
	if until.After(span.To) {
		span.To = until
	}

	basis := c.method.newCostBasis(profile.Currency)
	quantity := Q(0)
	oversold := false
	next := 0
	v.Snapshots = make([]CalculatedSnapshot, 0, span.Len())

	for day := range span.Days() {
		for ; next < len(positions) && positions[next].When() == day; next++ {
			a := positions[next]
			delta := Contribution(a)
			quantity = quantity.Add(delta)
			if delta.IsNegative() {
				basis.dispose(delta.Neg())
				continue
			}
			price, err := c.convert(ctx, a.Adjusted().Price(), profile.Currency, day)
			if err != nil {
				return nil, err
			}
			basis.acquire(day, delta, price)
		}

		price := profile.Zero()
		if md, ok := profile.PriceAsOf(day, c.lookback); ok {
			price = md.Close
		}
		unit, err := c.convert(ctx, price, currency, day)
		if err != nil {
			return nil, err
		}
		invested, err := c.convert(ctx, basis.total(), currency, day)
		if err != nil {
			return nil, err
		}

		if quantity.IsNegative() != oversold {
			oversold = quantity.IsNegative()
			if oversold {
				c.log.Warnw("position is oversold", "symbol", v.Symbol, "date", day, "quantity", quantity)
			}
		}

		v.Snapshots = append(v.Snapshots, CalculatedSnapshot{
			Date:             day,
			Quantity:         quantity,
			TotalValue:       unit.Mul(quantity),
			CurrentUnitPrice: unit,
			TotalInvested:    invested,
			Oversold:         oversold,
		})
	}
	return v, nil
}

// convert expresses 'm' in 'currency' on day 'on'. A missing rate values the
// amount at zero; any other exchange failure is returned.
//
// An empty 'currency' keeps the amount as is. An amount without currency is
// only known when it is zero.
func (c *Calculator) convert(ctx context.Context, m Money, currency string, on Date) (Money, error) {
	switch {
	case m.Currency() == currency || currency == "":
		return m, nil
	case m.IsZero():
		return M(0, currency), nil
	}
	converted, err := c.exchange.ConvertMoney(ctx, m, currency, on)
	if errors.Is(err, ErrNoRate) {
		c.log.Warnw("no exchange rate, valued at zero", "from", m.Currency(), "to", currency, "date", on)
		return M(0, currency), nil
	}
	if err != nil {
		return Money{}, fmt.Errorf("cannot convert %s to %s on %s: %w", m, currency, on, err)
	}
	return converted, nil
}
