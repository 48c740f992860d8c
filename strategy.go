package valuation

import (
	"fmt"
	"slices"
)

// Strategy computes adjusted fields of the activities of a holding.
//
// A strategy that finds nothing to do is a no-op. It must be idempotent: the
// pipeline relies on it to make complete runs repeatable.
type Strategy interface {
	Name() string
	Apply(h *Holding) error
}

// ResetTrace clears the trace of every position activity. It leaves the
// adjusted values untouched.
type ResetTrace struct{}

func (ResetTrace) Name() string { return "reset-trace" }

func (ResetTrace) Apply(h *Holding) error {
	for _, a := range h.Positions() {
		a.Adjusted().Reset()
	}
	return nil
}

// InitialValue seeds the adjusted fields from the recorded ones.
//
// A recorded price without a currency is in the profile currency. Without a
// profile currency, prices are unknown and seeded at zero.
type InitialValue struct{}

func (InitialValue) Name() string { return "initial-value" }

func (InitialValue) Apply(h *Holding) error {
	var currency string
	if p, ok := h.Profile(); ok {
		currency = p.Currency
	}
	for _, a := range h.Positions() {
		price, ok := a.UnitPrice()
		switch {
		case !ok || currency == "":
			price = M(0, currency)
		case price.Currency() == "":
			price = price.In(currency)
		}
		a.Adjusted().Set(ReasonInitialValue, a.Quantity(), price)
	}
	return nil
}

// StockSplitAdjustment restates activities that predate a split in post-split
// terms. Splits apply cumulatively, in chronological order.
type StockSplitAdjustment struct{}

func (StockSplitAdjustment) Name() string { return "stock-split" }

func (StockSplitAdjustment) Apply(h *Holding) error {
	profile, ok := h.Profile()
	if !ok || len(profile.Splits) == 0 {
		return nil
	}
	splits := slices.Clone(profile.Splits)
	slices.SortStableFunc(splits, func(a, b StockSplit) int { return a.Date.Compare(b.Date) })
	for _, s := range splits {
		if err := s.Validate(); err != nil {
			return err
		}
	}

	for _, a := range h.Positions() {
		for _, s := range splits {
			if !a.When().Before(s.Date) {
				continue // already in post-split terms
			}
			adj := a.Adjusted()
			q, p := s.restate(adj.Quantity(), adj.Price())
			adj.Set(s.String(), q, p)
		}
	}
	return nil
}

// PriceDetermination sets the adjusted unit price of activities without an
// inherent price (transfers, gifts, rewards) from the instrument market data.
//
// The close price of the activity date is used, or the last known one before
// it, at most Lookback days old (zero means no bound).
type PriceDetermination struct {
	Lookback int
}

func (PriceDetermination) Name() string { return "determine-price" }

func (s PriceDetermination) Apply(h *Holding) error {
	if s.Lookback < 0 {
		return fmt.Errorf("invalid price lookback %d", s.Lookback)
	}
	profile, ok := h.Profile()
	if !ok || len(profile.MarketData) == 0 {
		return nil
	}
	for _, a := range h.Positions() {
		if a.HasInherentPrice() {
			continue
		}
		md, ok := profile.PriceAsOf(a.When(), s.Lookback)
		if !ok {
			continue
		}
		adj := a.Adjusted()
		adj.Set(ReasonDeterminePrice, adj.Quantity(), md.Close)
	}
	return nil
}
