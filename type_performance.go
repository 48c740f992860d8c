package valuation

// Performance compares the value of a position to the amount invested in it.
type Performance struct {
	Invested, Value Money
}

// Performance of the position on the day of the snapshot.
func (s CalculatedSnapshot) Performance() Performance {
	return Performance{Invested: s.TotalInvested, Value: s.TotalValue}
}

// Gain is the unrealized gain, negative for a loss.
func (p Performance) Gain() Money {
	return p.Value.Sub(p.Invested)
}

// Percent is the gain relative to the amount invested, zero when nothing is
// invested.
func (p Performance) Percent() Percent {
	if p.Invested.IsZero() {
		return 0
	}
	return Percent(p.Gain().Amount().Div(p.Invested.Amount()).Mul(newDecimal(100)).InexactFloat64())
}
