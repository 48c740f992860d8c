package valuation

// PriceTrace explains a write to the adjusted fields of an activity.
type PriceTrace struct {
	Reason      string
	NewQuantity *Quantity
	NewPrice    *Money
}

// Reasons used by the built-in strategies.
const (
	ReasonInitialValue   = "Initial value"
	ReasonDeterminePrice = "Determine price"
)

func (t PriceTrace) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("reason", t.Reason)
	w.Optional("newQuantity", t.NewQuantity)
	w.Optional("newPrice", t.NewPrice)
	return w.MarshalJSON()
}

// Adjustment holds the adjusted quantity and unit price of an activity
// together with the trace of the writes that produced them.
//
// The trace only ever grows through Set, and only shrinks through Reset: the
// last entry always describes the current values.
type Adjustment struct {
	quantity Quantity
	price    Money
	trace    []PriceTrace
}

// Quantity returns the adjusted quantity.
func (a *Adjustment) Quantity() Quantity { return a.quantity }

// Price returns the adjusted unit price.
func (a *Adjustment) Price() Money { return a.price }

// Trace returns a copy of the trace entries, oldest first.
func (a *Adjustment) Trace() []PriceTrace {
	out := make([]PriceTrace, len(a.trace))
	copy(out, a.trace)
	return out
}

// Reset clears the trace. Adjusted values are left untouched.
func (a *Adjustment) Reset() { a.trace = a.trace[:0] }

// Set writes both adjusted values and records why.
func (a *Adjustment) Set(reason string, quantity Quantity, price Money) {
	a.quantity, a.price = quantity, price
	q, p := quantity, price
	a.trace = append(a.trace, PriceTrace{Reason: reason, NewQuantity: &q, NewPrice: &p})
}

// MarshalJSON writes the adjusted fields as they appear in an activity.
func (a *Adjustment) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("adjustedQuantity", a.quantity)
	w.Append("adjustedUnitPrice", a.price)
	w.Append("adjustedUnitPriceSource", a.Trace())
	return w.MarshalJSON()
}
