package valuation

import "testing"

func TestSymbolProfile_Sort(t *testing.T) {
	p := acme(
		closeOn(day.Add(2), USD(3)),
		closeOn(day, USD(1)),
		closeOn(day.Add(2), USD(99)), // duplicate, dropped
		closeOn(day.Add(1), USD(2)),
	)
	p.Splits = []StockSplit{NewStockSplit(day.Add(5), 1, 2), NewStockSplit(day, 1, 3)}
	p.Sort()

	if got, want := len(p.MarketData), 3; got != want {
		t.Fatalf("len(MarketData) = %d, want %d", got, want)
	}
	for i, md := range p.MarketData {
		if got, want := md.Date, day.Add(i); got != want {
			t.Errorf("MarketData[%d].Date = %v, want %v", i, got, want)
		}
	}
	if got, want := p.MarketData[2].Close, USD(3); !got.Equal(want) {
		t.Errorf("duplicate date kept %v, want %v", got, want)
	}
	if got, want := p.Splits[0].Date, day; got != want {
		t.Errorf("Splits[0].Date = %v, want %v", got, want)
	}
}

func TestSymbolProfile_Sort_Currency(t *testing.T) {
	p := acme(MarketData{Date: day, Open: M(9, ""), Close: M(10, ""), High: EUR(11)})
	p.Sort()
	md := p.MarketData[0]
	if got, want := md.Close, USD(10); !got.Equal(want) {
		t.Errorf("Close = %v, want %v", got, want)
	}
	if got, want := md.Open, USD(9); !got.Equal(want) {
		t.Errorf("Open = %v, want %v", got, want)
	}
	if got, want := md.High, EUR(11); !got.Equal(want) {
		t.Errorf("High = %v, want %v", got, want)
	}

	unknown := &SymbolProfile{Symbol: "X", MarketData: []MarketData{closeOn(day, M(10, ""))}}
	unknown.Sort()
	if got := unknown.MarketData[0].Close.Currency(); got != "" {
		t.Errorf("Close currency = %q without a profile currency, want none", got)
	}
}

func TestSymbolProfile_PriceAsOf(t *testing.T) {
	p := acme(closeOn(day, USD(10)), closeOn(day.Add(3), USD(13)))

	tests := []struct {
		name     string
		on       Date
		lookback int
		want     Money
		ok       bool
	}{
		{"before any data", day.Add(-1), 0, Money{}, false},
		{"exact", day, 0, USD(10), true},
		{"carried forward", day.Add(2), 0, USD(10), true},
		{"within lookback", day.Add(2), 2, USD(10), true},
		{"beyond lookback", day.Add(2), 1, Money{}, false},
		{"exact ignores lookback", day.Add(3), 1, USD(13), true},
		{"after last", day.Add(30), 0, USD(13), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md, ok := p.PriceAsOf(tt.on, tt.lookback)
			if ok != tt.ok {
				t.Fatalf("PriceAsOf(%v, %d) ok = %v, want %v", tt.on, tt.lookback, ok, tt.ok)
			}
			if ok && !md.Close.Equal(tt.want) {
				t.Errorf("PriceAsOf(%v, %d) = %v, want %v", tt.on, tt.lookback, md.Close, tt.want)
			}
		})
	}

	if _, ok := p.PriceOn(day.Add(1)); ok {
		t.Errorf("PriceOn() found a price on a day without data")
	}
	if got, ok := p.PriceOn(day); !ok || !got.Equal(USD(10)) {
		t.Errorf("PriceOn() = %v, %v, want %v", got, ok, USD(10))
	}
}

func TestStockSplit(t *testing.T) {
	s := NewStockSplit(NewDate(2024, 6, 10), 2, 1)
	if got, want := s.String(), "Stock split on 2024-06-10 (2:1)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := s.Ratio(), Q(2); !got.Equal(want) {
		t.Errorf("Ratio() = %v, want %v", got, want)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if err := NewStockSplit(day, 1, -2).Validate(); err == nil {
		t.Error("Validate() expected an error for a negative ratio")
	}
}
