package valuation

import (
	"slices"
)

// MarketData is one day of market prices, in the profile currency.
type MarketData struct {
	Date   Date  `json:"date"`
	Open   Money `json:"open"`
	High   Money `json:"high"`
	Low    Money `json:"low"`
	Close  Money `json:"close"`
	Volume int64 `json:"volume,omitempty"`
}

// SymbolProfile describes the instrument of a holding and its market history.
type SymbolProfile struct {
	Symbol     string       `json:"symbol"`
	Name       string       `json:"name,omitempty"`
	DataSource string       `json:"dataSource,omitempty"`
	AssetClass string       `json:"assetClass,omitempty"`
	Currency   string       `json:"currency"`
	MarketData []MarketData `json:"marketData,omitempty"`
	Splits     []StockSplit `json:"stockSplits,omitempty"`
}

// Sort orders market data and splits chronologically. When a date appears
// more than once, the first entry is kept. Prices recorded without a currency
// are in the profile currency.
func (p *SymbolProfile) Sort() {
	if p.Currency != "" {
		for i := range p.MarketData {
			md := &p.MarketData[i]
			for _, m := range []*Money{&md.Open, &md.High, &md.Low, &md.Close} {
				if m.Currency() == "" {
					*m = m.In(p.Currency)
				}
			}
		}
	}
	slices.SortStableFunc(p.MarketData, func(a, b MarketData) int { return a.Date.Compare(b.Date) })
	p.MarketData = slices.CompactFunc(p.MarketData, func(a, b MarketData) bool {
		return a.Date == b.Date
	})
	slices.SortStableFunc(p.Splits, func(a, b StockSplit) int { return a.Date.Compare(b.Date) })
}

// PriceOn returns the close price on exactly 'day'.
func (p *SymbolProfile) PriceOn(day Date) (Money, bool) {
	i, found := p.search(day)
	if !found {
		return Money{}, false
	}
	return p.MarketData[i].Close, true
}

// PriceAsOf returns the close price on 'day', or the most recent one before
// it. 'lookback' bounds how many days back a price can be carried forward,
// zero means no bound.
//
// MarketData must be sorted.
func (p *SymbolProfile) PriceAsOf(day Date, lookback int) (md MarketData, ok bool) {
	i, found := p.search(day)
	if found {
		return p.MarketData[i], true
	}
	// Not found. `i` is the index where `day` would be inserted.
	// The value we want is at `i-1`, which is the last entry before the target date.
	if i == 0 {
		return MarketData{}, false
	}
	md = p.MarketData[i-1]
	if lookback > 0 && md.Date.DaysUntil(day) > lookback {
		return MarketData{}, false
	}
	return md, true
}

// Zero returns a zero amount in the profile currency.
func (p *SymbolProfile) Zero() Money { return M(0, p.Currency) }

func (p *SymbolProfile) search(day Date) (int, bool) {
	return slices.BinarySearchFunc(p.MarketData, day, func(md MarketData, t Date) int {
		return md.Date.Compare(t)
	})
}
