package valuation

import (
	"encoding/json"
	"strings"
	"testing"
)

var day = NewDate(2024, 6, 10)

func TestInitialValue(t *testing.T) {
	buy := NewBuy(day, "t1", "", Q(10), USD(100))
	gift := NewTransfer(KindGift, day, "t2", "", Q(3), nil)
	h := holdingOf(acme(), buy, gift, NewCashActivity(KindDividend, day, "t3", "", USD(4)))

	if err := (InitialValue{}).Apply(h); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if got, want := buy.Adjusted().Price(), USD(100); !got.Equal(want) {
		t.Errorf("buy adjusted price = %v, want %v", got, want)
	}
	if got, want := gift.Adjusted().Price(), USD(0); !got.Equal(want) {
		t.Errorf("gift adjusted price = %v, want %v", got, want)
	}
	if got, want := gift.Adjusted().Quantity(), Q(3); !got.Equal(want) {
		t.Errorf("gift adjusted quantity = %v, want %v", got, want)
	}
	trace := buy.Adjusted().Trace()
	if len(trace) != 1 || trace[0].Reason != ReasonInitialValue {
		t.Fatalf("buy trace = %+v, want a single %q entry", trace, ReasonInitialValue)
	}
	if !trace[0].NewQuantity.Equal(Q(10)) || !trace[0].NewPrice.Equal(USD(100)) {
		t.Errorf("trace entry = %v %v, want 10 and %v", trace[0].NewQuantity, trace[0].NewPrice, USD(100))
	}
}

func TestInitialValue_Currency(t *testing.T) {
	t.Run("recorded price without currency", func(t *testing.T) {
		buy := NewBuy(day, "t1", "", Q(1), M(100, ""))
		if err := (InitialValue{}).Apply(holdingOf(acme(), buy)); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if got, want := buy.Adjusted().Price(), USD(100); !got.Equal(want) {
			t.Errorf("buy adjusted price = %v, want %v", got, want)
		}
	})

	t.Run("profile without currency", func(t *testing.T) {
		profile := acme()
		profile.Currency = ""
		buy := NewBuy(day, "t1", "", Q(1), USD(100))
		if err := (InitialValue{}).Apply(holdingOf(profile, buy)); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if got := buy.Adjusted().Price(); !got.IsZero() {
			t.Errorf("buy adjusted price = %v, want zero", got)
		}
		if got, want := buy.Adjusted().Quantity(), Q(1); !got.Equal(want) {
			t.Errorf("buy adjusted quantity = %v, want %v", got, want)
		}
	})
}

func TestResetTrace(t *testing.T) {
	buy := NewBuy(day, "t1", "", Q(10), USD(100))
	h := holdingOf(acme(), buy)
	buy.Adjusted().Set("something", Q(4), USD(7))

	if err := (ResetTrace{}).Apply(h); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := len(buy.Adjusted().Trace()); got != 0 {
		t.Errorf("len(Trace()) = %d, want 0", got)
	}
	// values are left untouched
	if got, want := buy.Adjusted().Quantity(), Q(4); !got.Equal(want) {
		t.Errorf("Quantity() = %v, want %v", got, want)
	}
	if got, want := buy.Adjusted().Price(), USD(7); !got.Equal(want) {
		t.Errorf("Price() = %v, want %v", got, want)
	}
}

func TestStockSplitAdjustment(t *testing.T) {
	t.Run("activity before the split", func(t *testing.T) {
		split := NewStockSplit(day.Add(1), 2, 1)
		profile := acme()
		profile.Splits = []StockSplit{split}
		buy := NewBuy(day, "t1", "", Q(10), USD(100))

		if err := (StockSplitAdjustment{}).Apply(seeded(t, holdingOf(profile, buy))); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if got, want := buy.Adjusted().Quantity(), Q(5); !got.Equal(want) {
			t.Errorf("adjusted quantity = %v, want %v", got, want)
		}
		if got, want := buy.Adjusted().Price(), USD(200); !got.Equal(want) {
			t.Errorf("adjusted price = %v, want %v", got, want)
		}
		trace := buy.Adjusted().Trace()
		if len(trace) != 1 {
			t.Fatalf("len(trace) = %d, want 1", len(trace))
		}
		if got, want := trace[0].Reason, split.String(); got != want {
			t.Errorf("reason = %q, want %q", got, want)
		}
	})

	t.Run("activity after the split", func(t *testing.T) {
		profile := acme()
		profile.Splits = []StockSplit{NewStockSplit(day.Add(-1), 2, 1)}
		buy := NewBuy(day, "t1", "", Q(10), USD(100))

		if err := (StockSplitAdjustment{}).Apply(seeded(t, holdingOf(profile, buy))); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if got, want := buy.Adjusted().Quantity(), Q(10); !got.Equal(want) {
			t.Errorf("adjusted quantity = %v, want %v", got, want)
		}
		if got, want := buy.Adjusted().Price(), USD(100); !got.Equal(want) {
			t.Errorf("adjusted price = %v, want %v", got, want)
		}
		if got := len(buy.Adjusted().Trace()); got != 0 {
			t.Errorf("len(trace) = %d, want 0", got)
		}
	})

	t.Run("activity on the split date", func(t *testing.T) {
		profile := acme()
		profile.Splits = []StockSplit{NewStockSplit(day, 1, 4)}
		buy := NewBuy(day, "t1", "", Q(10), USD(100))

		if err := (StockSplitAdjustment{}).Apply(seeded(t, holdingOf(profile, buy))); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if got := len(buy.Adjusted().Trace()); got != 0 {
			t.Errorf("len(trace) = %d, want 0", got)
		}
	})

	t.Run("cumulative splits", func(t *testing.T) {
		profile := acme()
		// declared out of order on purpose
		profile.Splits = []StockSplit{NewStockSplit(day.Add(20), 1, 3), NewStockSplit(day.Add(10), 1, 2)}
		early := NewBuy(day, "t1", "", Q(10), USD(600))
		middle := NewBuy(day.Add(15), "t2", "", Q(10), USD(300))

		if err := (StockSplitAdjustment{}).Apply(seeded(t, holdingOf(profile, early, middle))); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if got, want := early.Adjusted().Quantity(), Q(60); !got.Equal(want) {
			t.Errorf("early quantity = %v, want %v", got, want)
		}
		if got, want := early.Adjusted().Price(), USD(100); !got.Equal(want) {
			t.Errorf("early price = %v, want %v", got, want)
		}
		trace := early.Adjusted().Trace()
		if len(trace) != 2 || !strings.Contains(trace[0].Reason, day.Add(10).String()) {
			t.Errorf("early trace = %+v, want the %s split first", trace, day.Add(10))
		}
		if got, want := middle.Adjusted().Quantity(), Q(30); !got.Equal(want) {
			t.Errorf("middle quantity = %v, want %v", got, want)
		}
	})

	t.Run("no splits", func(t *testing.T) {
		buy := NewBuy(day, "t1", "", Q(10), USD(100))
		if err := (StockSplitAdjustment{}).Apply(holdingOf(acme(), buy)); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if got := len(buy.Adjusted().Trace()); got != 0 {
			t.Errorf("len(trace) = %d, want 0", got)
		}
	})

	t.Run("invalid ratio", func(t *testing.T) {
		profile := acme()
		profile.Splits = []StockSplit{NewStockSplit(day, 0, 1)}
		if err := (StockSplitAdjustment{}).Apply(holdingOf(profile)); err == nil {
			t.Error("Apply() expected an error for a 0:1 split")
		}
	})
}

func TestPriceDetermination(t *testing.T) {
	t.Run("transfer with exact market data", func(t *testing.T) {
		receive := NewTransfer(KindReceive, day, "t1", "", Q(2), nil)
		buy := NewBuy(day, "t2", "", Q(1), USD(95))
		h := seeded(t, holdingOf(acme(closeOn(day, USD(100))), receive, buy))

		if err := (PriceDetermination{}).Apply(h); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if got, want := receive.Adjusted().Price(), USD(100); !got.Equal(want) {
			t.Errorf("receive price = %v, want %v", got, want)
		}
		trace := receive.Adjusted().Trace()
		if len(trace) != 1 || trace[0].Reason != ReasonDeterminePrice {
			t.Errorf("receive trace = %+v, want a single %q entry", trace, ReasonDeterminePrice)
		}
		// trades have their own price
		if got, want := buy.Adjusted().Price(), USD(95); !got.Equal(want) {
			t.Errorf("buy price = %v, want %v", got, want)
		}
		if got := len(buy.Adjusted().Trace()); got != 0 {
			t.Errorf("len(buy trace) = %d, want 0", got)
		}
	})

	t.Run("trade left unseeded", func(t *testing.T) {
		buy := NewBuy(day, "t1", "", Q(1), USD(95))
		h := holdingOf(acme(closeOn(day, USD(100))), buy)
		if err := (PriceDetermination{}).Apply(h); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if got := buy.Adjusted().Price(); !got.Amount().IsZero() {
			t.Errorf("buy price = %v, want a zero amount", got)
		}
		if got := len(buy.Adjusted().Trace()); got != 0 {
			t.Errorf("len(buy trace) = %d, want 0", got)
		}
	})

	t.Run("exact match wins over earlier prices", func(t *testing.T) {
		gift := NewTransfer(KindGift, day, "t1", "", Q(2), nil)
		h := holdingOf(acme(closeOn(day.Add(-1), USD(90)), closeOn(day, USD(100))), gift)
		if err := (PriceDetermination{}).Apply(h); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if got, want := gift.Adjusted().Price(), USD(100); !got.Equal(want) {
			t.Errorf("gift price = %v, want %v", got, want)
		}
	})

	t.Run("carry forward", func(t *testing.T) {
		reward := NewTransfer(KindStakingReward, day, "t1", "", Q(2), nil)
		h := holdingOf(acme(closeOn(day.Add(-3), USD(80)), closeOn(day.Add(2), USD(120))), reward)
		if err := (PriceDetermination{}).Apply(h); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if got, want := reward.Adjusted().Price(), USD(80); !got.Equal(want) {
			t.Errorf("reward price = %v, want %v", got, want)
		}
	})

	t.Run("lookback exceeded", func(t *testing.T) {
		reward := NewTransfer(KindStakingReward, day, "t1", "", Q(2), nil)
		h := holdingOf(acme(closeOn(day.Add(-3), USD(80))), reward)
		if err := (PriceDetermination{Lookback: 2}).Apply(h); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if got := len(reward.Adjusted().Trace()); got != 0 {
			t.Errorf("len(trace) = %d, want 0", got)
		}
	})

	t.Run("no market data", func(t *testing.T) {
		send := NewTransfer(KindSend, day, "t1", "", Q(2), nil)
		if err := (PriceDetermination{}).Apply(holdingOf(acme(), send)); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if err := (PriceDetermination{}).Apply(holdingOf(nil, send)); err != nil {
			t.Fatalf("Apply() without profile error = %v", err)
		}
		if got := len(send.Adjusted().Trace()); got != 0 {
			t.Errorf("len(trace) = %d, want 0", got)
		}
		if !send.Adjusted().Price().IsZero() {
			t.Errorf("price = %v, want zero", send.Adjusted().Price())
		}
	})
}

func TestPipeline_Run(t *testing.T) {
	newHolding := func() *Holding {
		profile := acme(closeOn(day.Add(-5), USD(300)), closeOn(day.Add(5), USD(150)))
		profile.Splits = []StockSplit{NewStockSplit(day, 1, 2)}
		return holdingOf(profile,
			NewBuy(day.Add(-5), "t1", "", Q(10), USD(300)),
			NewTransfer(KindReceive, day.Add(-2), "t2", "", Q(4), nil),
			NewSell(day.Add(5), "t3", "", Q(6), USD(150)),
			NewCashActivity(KindFee, day, "t4", "", USD(1)),
		)
	}

	h := newHolding()
	p := NewPipeline()
	if err := p.Run(h); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	buy := h.Activities[0].(PositionActivity)
	if got, want := buy.Adjusted().Quantity(), Q(20); !got.Equal(want) {
		t.Errorf("buy quantity = %v, want %v", got, want)
	}
	if got, want := buy.Adjusted().Price(), USD(150); !got.Equal(want) {
		t.Errorf("buy price = %v, want %v", got, want)
	}
	if got, want := len(buy.Adjusted().Trace()), 2; got != want {
		t.Errorf("len(buy trace) = %d, want %d", got, want)
	}

	// split first, then priced from market data.
	receive := h.Activities[1].(PositionActivity)
	if got, want := receive.Adjusted().Quantity(), Q(8); !got.Equal(want) {
		t.Errorf("receive quantity = %v, want %v", got, want)
	}
	if got, want := receive.Adjusted().Price(), USD(300); !got.Equal(want) {
		t.Errorf("receive price = %v, want %v", got, want)
	}
	var reasons []string
	for _, e := range receive.Adjusted().Trace() {
		reasons = append(reasons, e.Reason)
	}
	if got, want := strings.Join(reasons, "|"), ReasonInitialValue+"|Stock split on 2024-06-10 (1:2)|"+ReasonDeterminePrice; got != want {
		t.Errorf("receive trace = %q, want %q", got, want)
	}

	t.Run("idempotent", func(t *testing.T) {
		first, err := json.Marshal(h)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if err := p.Run(h); err != nil {
			t.Fatalf("second Run() error = %v", err)
		}
		second, err := json.Marshal(h)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if string(first) != string(second) {
			t.Errorf("second run changed the holding:\nfirst:  %s\nsecond: %s", first, second)
		}
	})

	t.Run("fail fast", func(t *testing.T) {
		h := newHolding()
		h.SymbolProfiles[0].Splits = append(h.SymbolProfiles[0].Splits, NewStockSplit(day, 1, 0))
		err := NewPipeline().Run(h)
		if err == nil {
			t.Fatal("Run() expected an error")
		}
		if !strings.Contains(err.Error(), "stock-split") {
			t.Errorf("Run() error = %v, want it to name the failing strategy", err)
		}
		// determine-price never ran
		receive := h.Activities[1].(PositionActivity)
		for _, e := range receive.Adjusted().Trace() {
			if e.Reason == ReasonDeterminePrice {
				t.Errorf("strategy after the failing one was applied")
			}
		}
	})

	t.Run("extra strategies run last", func(t *testing.T) {
		p := NewPipeline(WithStrategies(ResetTrace{}), WithPriceLookback(3))
		got := strings.Join(p.Strategies(), ",")
		want := "reset-trace,initial-value,stock-split,determine-price,reset-trace"
		if got != want {
			t.Errorf("Strategies() = %q, want %q", got, want)
		}
	})
}
