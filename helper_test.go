package valuation

import "testing"

// EUR is a helper for test to create euro money from const
func EUR(v float64) Money { return M(v, "EUR") }

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// closeOn is a helper to create a market data entry with only a close price.
func closeOn(on Date, price Money) MarketData { return MarketData{Date: on, Close: price} }

// acme returns a USD profile with the given market data.
func acme(md ...MarketData) *SymbolProfile {
	return &SymbolProfile{
		Symbol:     "ACME",
		Name:       "Acme Corp.",
		DataSource: "YAHOO",
		AssetClass: "EQUITY",
		Currency:   "USD",
		MarketData: md,
	}
}

// holdingOf creates a holding of 'profile' with the given activities.
func holdingOf(profile *SymbolProfile, activities ...Activity) *Holding {
	h := &Holding{Activities: activities}
	if profile != nil {
		h.SymbolProfiles = []*SymbolProfile{profile}
	}
	return h
}

func ptr[T any](v T) *T { return &v }

// seeded runs InitialValue on 'h' and clears the trace it leaves, so that a
// strategy under test starts from the recorded values.
func seeded(t *testing.T, h *Holding) *Holding {
	t.Helper()
	if err := (InitialValue{}).Apply(h); err != nil {
		t.Fatalf("InitialValue.Apply() error = %v", err)
	}
	if err := (ResetTrace{}).Apply(h); err != nil {
		t.Fatalf("ResetTrace.Apply() error = %v", err)
	}
	return h
}
