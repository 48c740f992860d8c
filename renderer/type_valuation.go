package renderer

import (
	"github.com/etnz/valuation"
)

// Report is the view of the valuations of several holdings in a single
// reporting currency.
type Report struct {
	Currency string
	Rows     []Row
	Holdings []History
}

// Row summarizes the latest snapshot of a holding.
type Row struct {
	Symbol   string
	Name     string
	Days     int
	Quantity string
	Value    string
	Invested string
	Gain     string
	Return   string
	Oversold bool
}

// History is the table of snapshots of a holding, one entry per period.
type History struct {
	Symbol       string
	Name         string
	PeriodHeader string
	Entries      []Entry
}

// Entry is the last snapshot of a period.
type Entry struct {
	Period   string
	Quantity string
	Price    string
	Value    string
	Invested string
	Oversold bool
}

// NewReport builds the view of 'valuations', sampling histories by 'period'.
// With 'summaryOnly' histories are omitted.
func NewReport(currency string, valuations []*valuation.Valuation, period valuation.Period, summaryOnly bool) *Report {
	r := &Report{Currency: currency}
	for _, v := range valuations {
		last, ok := v.Latest()
		if !ok {
			continue
		}
		perf := last.Performance()
		r.Rows = append(r.Rows, Row{
			Symbol:   v.Symbol,
			Name:     v.Name,
			Days:     len(v.Snapshots),
			Quantity: last.Quantity.String(),
			Value:    last.TotalValue.String(),
			Invested: last.TotalInvested.String(),
			Gain:     perf.Gain().String(),
			Return:   perf.Percent().SignedString(),
			Oversold: last.Oversold,
		})
		if !summaryOnly {
			r.Holdings = append(r.Holdings, newHistory(v, period))
		}
	}
	return r
}

func newHistory(v *valuation.Valuation, period valuation.Period) History {
	h := History{Symbol: v.Symbol, Name: v.Name, PeriodHeader: "Date"}
	if period != valuation.Daily {
		h.PeriodHeader = "Period"
	}
	for i, s := range v.Snapshots {
		id := period.Range(s.Date).Identifier()
		// keep the last snapshot of each period.
		if i+1 < len(v.Snapshots) && period.Range(v.Snapshots[i+1].Date).Identifier() == id {
			continue
		}
		h.Entries = append(h.Entries, Entry{
			Period:   id,
			Quantity: s.Quantity.String(),
			Price:    s.CurrentUnitPrice.String(),
			Value:    s.TotalValue.String(),
			Invested: s.TotalInvested.String(),
			Oversold: s.Oversold,
		})
	}
	return h
}

// Trace is the view of the adjustments of every position activity of a holding.
type Trace struct {
	Symbol     string
	Activities []TraceActivity
}

// TraceActivity shows how an activity got its adjusted values.
type TraceActivity struct {
	Date             string
	Kind             string
	ID               string
	Quantity         string
	Price            string
	AdjustedQuantity string
	AdjustedPrice    string
	Steps            []TraceStep
}

// TraceStep is one trace entry.
type TraceStep struct {
	Reason   string
	Quantity string
	Price    string
}

// NewTrace builds the view of the adjustments of 'h'.
func NewTrace(h *valuation.Holding) *Trace {
	t := &Trace{Symbol: h.Name()}
	for _, a := range h.Positions() {
		price := "unknown"
		if p, ok := a.UnitPrice(); ok {
			price = p.String()
		}
		adj := a.Adjusted()
		ta := TraceActivity{
			Date:             a.When().String(),
			Kind:             string(a.Kind()),
			ID:               a.TransactionID(),
			Quantity:         a.Quantity().String(),
			Price:            price,
			AdjustedQuantity: adj.Quantity().String(),
			AdjustedPrice:    adj.Price().String(),
		}
		for _, e := range adj.Trace() {
			step := TraceStep{Reason: e.Reason}
			if e.NewQuantity != nil {
				step.Quantity = e.NewQuantity.String()
			}
			if e.NewPrice != nil {
				step.Price = e.NewPrice.String()
			}
			ta.Steps = append(ta.Steps, step)
		}
		t.Activities = append(t.Activities, ta)
	}
	return t
}
