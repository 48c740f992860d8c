package valuation

import "errors"

// ActivityKind is a typed string identifying the kind of an activity.
type ActivityKind string

// Activity kinds.
const (
	KindBuy            ActivityKind = "buy"
	KindSell           ActivityKind = "sell"
	KindSend           ActivityKind = "send"
	KindReceive        ActivityKind = "receive"
	KindGift           ActivityKind = "gift"
	KindStakingReward  ActivityKind = "staking-reward"
	KindDividend       ActivityKind = "dividend"
	KindFee            ActivityKind = "fee"
	KindInterest       ActivityKind = "interest"
	KindCashDeposit    ActivityKind = "cash-deposit"
	KindCashWithdrawal ActivityKind = "cash-withdrawal"
)

// ErrUnknownActivity is returned when decoding an activity of an unsupported kind.
var ErrUnknownActivity = errors.New("unknown activity kind")

// Activity is a single recorded portfolio event.
//
// The set of implementations is closed: they all embed baseActivity.
type Activity interface {
	Kind() ActivityKind
	When() Date
	TransactionID() string
	Description() string
	base() *baseActivity
}

// PositionActivity is an activity that moves units of the instrument, and
// therefore carries a quantity, an optional unit price and their adjusted
// counterparts.
type PositionActivity interface {
	Activity
	// Quantity is the recorded quantity, as imported.
	Quantity() Quantity
	// UnitPrice is the recorded unit price, if any.
	UnitPrice() (Money, bool)
	// Adjusted gives access to the adjusted fields.
	Adjusted() *Adjustment
	// Direction is +1 when the activity increases the position, -1 otherwise.
	Direction() int
	// HasInherentPrice is true when the price was negotiated in the transaction itself.
	HasInherentPrice() bool
}

type baseActivity struct {
	kind        ActivityKind
	on          Date
	id          string
	description string
}

func (a *baseActivity) Kind() ActivityKind    { return a.kind }
func (a *baseActivity) When() Date            { return a.on }
func (a *baseActivity) TransactionID() string { return a.id }
func (a *baseActivity) Description() string   { return a.description }
func (a *baseActivity) base() *baseActivity   { return a }

// positionActivity is the component shared by all activities moving units.
type positionActivity struct {
	baseActivity
	quantity  Quantity
	unitPrice *Money
	adjusted  Adjustment
}

func (a *positionActivity) Quantity() Quantity    { return a.quantity }
func (a *positionActivity) Adjusted() *Adjustment { return &a.adjusted }

func (a *positionActivity) UnitPrice() (Money, bool) {
	if a.unitPrice == nil {
		return Money{}, false
	}
	return *a.unitPrice, true
}

// Contribution returns the signed change in position for this activity,
// based on the adjusted quantity.
func Contribution(a PositionActivity) Quantity {
	q := a.Adjusted().Quantity().Abs()
	if a.Direction() < 0 {
		return q.Neg()
	}
	return q
}

// newPosition creates the position component. Adjusted values stay zero
// until InitialValue seeds them.
func newPosition(kind ActivityKind, on Date, id, description string, quantity Quantity, unitPrice *Money) positionActivity {
	return positionActivity{
		baseActivity: baseActivity{kind: kind, on: on, id: id, description: description},
		quantity:     quantity,
		unitPrice:    unitPrice,
	}
}

// Trade is a buy or a sell: units exchanged at a negotiated price.
type Trade struct{ positionActivity }

func (t *Trade) Direction() int {
	if t.kind == KindSell {
		return -1
	}
	return 1
}
func (t *Trade) HasInherentPrice() bool { return true }

// NewBuy creates a new buy activity.
func NewBuy(on Date, id, description string, quantity Quantity, unitPrice Money) *Trade {
	return &Trade{newPosition(KindBuy, on, id, description, quantity, &unitPrice)}
}

// NewSell creates a new sell activity.
func NewSell(on Date, id, description string, quantity Quantity, unitPrice Money) *Trade {
	return &Trade{newPosition(KindSell, on, id, description, quantity, &unitPrice)}
}

// Transfer is a movement of units without a negotiated price: sending or
// receiving units, a gift received or a staking reward.
type Transfer struct{ positionActivity }

func (t *Transfer) Direction() int {
	if t.kind == KindSend {
		return -1
	}
	return 1
}
func (t *Transfer) HasInherentPrice() bool { return false }

// NewTransfer creates a transfer of the given kind, which must be one of
// KindSend, KindReceive, KindGift or KindStakingReward. unitPrice may be nil.
func NewTransfer(kind ActivityKind, on Date, id, description string, quantity Quantity, unitPrice *Money) *Transfer {
	switch kind {
	case KindSend, KindReceive, KindGift, KindStakingReward:
	default:
		panic("not a transfer kind: " + string(kind))
	}
	return &Transfer{newPosition(kind, on, id, description, quantity, unitPrice)}
}

// CashActivity is an activity that only carries an amount: dividends, fees,
// interests, deposits and withdrawals. It never changes the position.
type CashActivity struct {
	baseActivity
	amount Money
}

func (c *CashActivity) Amount() Money { return c.amount }

// NewCashActivity creates an amount-only activity.
func NewCashActivity(kind ActivityKind, on Date, id, description string, amount Money) *CashActivity {
	switch kind {
	case KindDividend, KindFee, KindInterest, KindCashDeposit, KindCashWithdrawal:
	default:
		panic("not a cash activity kind: " + string(kind))
	}
	return &CashActivity{baseActivity: baseActivity{kind: kind, on: on, id: id, description: description}, amount: amount}
}

var (
	_ PositionActivity = (*Trade)(nil)
	_ PositionActivity = (*Transfer)(nil)
	_ Activity         = (*CashActivity)(nil)
)
