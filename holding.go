package valuation

// Holding is one tradable instrument's activity and profile history within a
// portfolio.
type Holding struct {
	Activities     []Activity
	SymbolProfiles []*SymbolProfile
}

// Profile returns the authoritative symbol profile of the holding.
//
// When several profiles are attached, the first one wins.
func (h *Holding) Profile() (*SymbolProfile, bool) {
	if len(h.SymbolProfiles) == 0 || h.SymbolProfiles[0] == nil {
		return nil, false
	}
	return h.SymbolProfiles[0], true
}

// ActivityCount counts all activities, including those that never change the
// position.
func (h *Holding) ActivityCount() int { return len(h.Activities) }

// Positions returns the activities that carry a quantity and a price.
func (h *Holding) Positions() []PositionActivity {
	out := make([]PositionActivity, 0, len(h.Activities))
	for _, a := range h.Activities {
		if p, ok := a.(PositionActivity); ok {
			out = append(out, p)
		}
	}
	return out
}

// Name returns a human friendly name for logs.
func (h *Holding) Name() string {
	if p, ok := h.Profile(); ok {
		return p.Symbol
	}
	return "<no profile>"
}
