package valuation

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

const holdingJSON = `{
  "activities": [
    {"type": "buy", "date": "2024-06-10", "transactionId": "t1", "quantity": 10, "unitPrice": {"currency": "USD", "amount": 100}},
    {"type": "dividend", "date": "2024-06-11", "transactionId": "t2", "amount": {"currency": "USD", "amount": 4}},
    {"type": "receive", "date": "2024-06-12", "quantity": 2}
  ],
  "symbolProfiles": [{
    "symbol": "ACME",
    "currency": "USD",
    "marketData": [
      {"date": "2024-06-12", "close": {"currency": "USD", "amount": 55}},
      {"date": "2024-06-10", "close": {"currency": "USD", "amount": 100}}
    ],
    "stockSplits": [{"date": "2024-06-11", "fromAmount": 1, "toAmount": 2}]
  }]
}`

func TestDecodeHoldings(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"array", "[" + holdingJSON + "," + holdingJSON + "]", 2},
		{"stream", holdingJSON + "\n" + holdingJSON + "\n", 2},
		{"single", "\n  " + holdingJSON, 1},
		{"empty", "  \n", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			holdings, err := DecodeHoldings(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("DecodeHoldings() error = %v", err)
			}
			if got := len(holdings); got != tt.want {
				t.Fatalf("len(holdings) = %d, want %d", got, tt.want)
			}
			for _, h := range holdings {
				if got, want := h.ActivityCount(), 3; got != want {
					t.Errorf("ActivityCount() = %d, want %d", got, want)
				}
				if got, want := len(h.Positions()), 2; got != want {
					t.Errorf("len(Positions()) = %d, want %d", got, want)
				}
			}
		})
	}
}

func TestHolding_UnmarshalJSON(t *testing.T) {
	var h Holding
	if err := json.Unmarshal([]byte(holdingJSON), &h); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	p, ok := h.Profile()
	if !ok {
		t.Fatal("Profile() not found")
	}
	if got, want := p.MarketData[0].Date, NewDate(2024, 6, 10); got != want {
		t.Errorf("market data not sorted, first date = %v, want %v", got, want)
	}

	buy, ok := h.Activities[0].(*Trade)
	if !ok {
		t.Fatalf("activity #0 is %T, want *Trade", h.Activities[0])
	}
	if got, want := buy.Kind(), KindBuy; got != want {
		t.Errorf("Kind() = %v, want %v", got, want)
	}
	dividend, ok := h.Activities[1].(*CashActivity)
	if !ok {
		t.Fatalf("activity #1 is %T, want *CashActivity", h.Activities[1])
	}
	if got, want := dividend.Amount(), USD(4); !got.Equal(want) {
		t.Errorf("Amount() = %v, want %v", got, want)
	}
	receive, ok := h.Activities[2].(*Transfer)
	if !ok {
		t.Fatalf("activity #2 is %T, want *Transfer", h.Activities[2])
	}
	if receive.TransactionID() == "" {
		t.Error("missing transaction id was not generated")
	}
	if _, ok := receive.UnitPrice(); ok {
		t.Error("receive has no recorded price")
	}
}

func TestDecodeActivity_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unknown kind", `{"type": "swap", "date": "2024-06-10", "quantity": 1}`},
		{"missing date", `{"type": "buy", "quantity": 1, "unitPrice": {"currency": "USD", "amount": 1}}`},
		{"buy without price", `{"type": "buy", "date": "2024-06-10", "quantity": 1}`},
		{"gift without quantity", `{"type": "gift", "date": "2024-06-10"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h Holding
			err := json.Unmarshal([]byte(`{"activities": [`+tt.input+`]}`), &h)
			if err == nil {
				t.Fatal("Unmarshal() expected an error")
			}
		})
	}

	var h Holding
	err := json.Unmarshal([]byte(`{"activities": [{"type": "swap", "date": "2024-06-10"}]}`), &h)
	if !errors.Is(err, ErrUnknownActivity) {
		t.Errorf("Unmarshal() error = %v, want %v", err, ErrUnknownActivity)
	}
}

func TestHolding_MarshalJSON(t *testing.T) {
	var h Holding
	if err := json.Unmarshal([]byte(holdingJSON), &h); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if err := NewPipeline().Run(&h); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	data, err := json.Marshal(h.Activities[0])
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var got struct {
		Type             string            `json:"type"`
		AdjustedQuantity Quantity          `json:"adjustedQuantity"`
		AdjustedPrice    Money             `json:"adjustedUnitPrice"`
		Source           []json.RawMessage `json:"adjustedUnitPriceSource"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v in %s", err, data)
	}
	if got.Type != "buy" {
		t.Errorf("type = %q, want buy", got.Type)
	}
	if want := Q(20); !got.AdjustedQuantity.Equal(want) {
		t.Errorf("adjustedQuantity = %v, want %v", got.AdjustedQuantity, want)
	}
	if want := USD(50); !got.AdjustedPrice.Equal(want) {
		t.Errorf("adjustedUnitPrice = %v, want %v", got.AdjustedPrice, want)
	}
	if got, want := len(got.Source), 2; got != want {
		t.Errorf("len(adjustedUnitPriceSource) = %d, want %d", got, want)
	}
	if !bytes.Contains(data, []byte(`"reason":"Stock split on 2024-06-11 (1:2)"`)) {
		t.Errorf("trace reason missing in %s", data)
	}

	// decoding what was encoded must give back the same holding
	var back Holding
	all, err := json.Marshal(&h)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if err := json.Unmarshal(all, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v in %s", err, all)
	}
	if got, want := back.ActivityCount(), h.ActivityCount(); got != want {
		t.Errorf("ActivityCount() = %d, want %d", got, want)
	}
}

func TestEncodeValuation(t *testing.T) {
	v := &Valuation{
		Symbol: "ACME",
		Snapshots: []CalculatedSnapshot{
			{Date: day, Quantity: Q(1), TotalValue: USD(10), CurrentUnitPrice: USD(10), TotalInvested: USD(8)},
			{Date: day.Add(1), Quantity: Q(-1), TotalValue: USD(-10), CurrentUnitPrice: USD(10), Oversold: true},
		},
	}
	var buf bytes.Buffer
	if err := EncodeValuation(&buf, v); err != nil {
		t.Fatalf("EncodeValuation() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if got, want := len(lines), 2; got != want {
		t.Fatalf("got %d lines, want %d", got, want)
	}
	if !strings.HasPrefix(lines[0], `{"date":"2024-06-10","quantity":`) {
		t.Errorf("unexpected first line %s", lines[0])
	}
	if strings.Contains(lines[0], "oversold") {
		t.Errorf("oversold must be omitted when false: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"oversold":true`) {
		t.Errorf("oversold missing: %s", lines[1])
	}
}
