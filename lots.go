package valuation

// costBasis tracks the total amount paid for the units currently held.
type costBasis interface {
	acquire(on Date, quantity Quantity, unitPrice Money)
	dispose(quantity Quantity)
	total() Money
}

// averageCost spreads the cost evenly over all held units.
type averageCost struct {
	quantity Quantity // can be negative after an oversell
	cost     Money
}

func (a *averageCost) acquire(_ Date, quantity Quantity, unitPrice Money) {
	held := a.quantity.Add(quantity)
	switch {
	case !held.IsPositive():
		// still covering a short position, nothing is held.
		a.cost = a.cost.Zero()
	case a.quantity.IsNegative():
		// only the units above zero are held.
		a.cost = unitPrice.Mul(held)
	default:
		a.cost = a.cost.Add(unitPrice.Mul(quantity))
	}
	a.quantity = held
}

func (a *averageCost) dispose(quantity Quantity) {
	if !a.quantity.GreaterThan(quantity) {
		a.cost = a.cost.Zero()
	} else {
		a.cost = a.cost.Sub(a.cost.Mul(quantity).Div(a.quantity))
	}
	a.quantity = a.quantity.Sub(quantity)
}

func (a *averageCost) total() Money { return a.cost }

// lot represents a single acquisition of units, used for cost basis calculations.
type lot struct {
	Date     Date
	Quantity Quantity
	Cost     Money // Total cost of the lot (quantity * price)
}

type lots []lot

// sell reduces the available lots by a given quantity to sell using the FIFO
// method. It returns the quantity that could not be matched by any lot.
func (l lots) sell(quantityToSell Quantity) (lots, Quantity) {
	var remainingLots lots

	for _, currentLot := range l {
		if quantityToSell.IsZero() {
			remainingLots = append(remainingLots, currentLot)
			continue
		}

		if currentLot.Quantity.GreaterThan(quantityToSell) {
			// Partial sale from this lot
			costOfSoldPortion := currentLot.Cost.Mul(quantityToSell).Div(currentLot.Quantity)
			remainingLots = append(remainingLots, lot{
				Date:     currentLot.Date,
				Quantity: currentLot.Quantity.Sub(quantityToSell),
				Cost:     currentLot.Cost.Sub(costOfSoldPortion),
			})
			quantityToSell = Q(0)
		} else {
			// Full sale of this lot
			quantityToSell = quantityToSell.Sub(currentLot.Quantity)
		}
	}
	return remainingLots, quantityToSell
}

// fifoCost keeps one lot per acquisition.
type fifoCost struct {
	zero  Money
	lots  lots
	short Quantity // units disposed without any lot to match them
}

func (f *fifoCost) acquire(on Date, quantity Quantity, unitPrice Money) {
	if f.short.IsPositive() {
		covered := quantity
		if f.short.LessThan(quantity) {
			covered = f.short
		}
		f.short = f.short.Sub(covered)
		quantity = quantity.Sub(covered)
	}
	if !quantity.IsPositive() {
		return
	}
	f.lots = append(f.lots, lot{Date: on, Quantity: quantity, Cost: unitPrice.Mul(quantity)})
}

func (f *fifoCost) dispose(quantity Quantity) {
	var unmatched Quantity
	f.lots, unmatched = f.lots.sell(quantity)
	f.short = f.short.Add(unmatched)
}

func (f *fifoCost) total() Money {
	total := f.zero
	for _, l := range f.lots {
		total = total.Add(l.Cost)
	}
	return total
}
