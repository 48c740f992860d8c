package valuation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrNoRate is returned by an Exchange that does not know the rate for a
// date. It is a missing data condition, not a failure.
var ErrNoRate = errors.New("no exchange rate")

// Exchange converts money between currencies at historical rates.
type Exchange interface {
	// ConvertMoney returns 'm' expressed in 'currency' using the rate of day 'on'.
	ConvertMoney(ctx context.Context, m Money, currency string, on Date) (Money, error)
}

// Identity is an Exchange that only accepts conversions to the same currency.
type Identity struct{}

func (Identity) ConvertMoney(_ context.Context, m Money, currency string, on Date) (Money, error) {
	if m.Currency() == currency {
		return m, nil
	}
	return Money{}, fmt.Errorf("convert %s to %s on %s: %w", m.Currency(), currency, on, ErrNoRate)
}

type pair struct{ base, quote string }

type rate struct {
	on    Date
	value decimal.Decimal
}

// RateTable is an in-memory history of exchange rates.
//
// A rate for base/quote is the price of one base unit in quote currency. The
// rate of a day is the last known on or before that day, at most Lookback
// days old (zero means no bound). Inverse pairs are used when the direct pair
// is unknown.
type RateTable struct {
	Lookback int

	mu    sync.RWMutex
	rates map[pair][]rate // sorted by date
}

// NewRateTable returns an empty rate table.
func NewRateTable() *RateTable {
	return &RateTable{rates: make(map[pair][]rate)}
}

// Append records the base/quote rate on a given day, replacing any existing one.
func (t *RateTable) Append(base, quote string, on Date, value decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rates == nil {
		t.rates = make(map[pair][]rate)
	}
	k := pair{base, quote}
	series := t.rates[k]
	i, found := slices.BinarySearchFunc(series, on, func(r rate, d Date) int { return r.on.Compare(d) })
	if found {
		series[i].value = value
		return
	}
	t.rates[k] = slices.Insert(series, i, rate{on, value})
}

// Rate returns the base/quote rate as of 'on'.
func (t *RateTable) Rate(base, quote string, on Date) (decimal.Decimal, bool) {
	if base == quote {
		return decimal.NewFromInt(1), true
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if v, ok := t.asOf(pair{base, quote}, on); ok {
		return v, true
	}
	if v, ok := t.asOf(pair{quote, base}, on); ok && !v.IsZero() {
		return decimal.NewFromInt(1).Div(v), true
	}
	return decimal.Decimal{}, false
}

func (t *RateTable) asOf(k pair, on Date) (decimal.Decimal, bool) {
	series := t.rates[k]
	i, found := slices.BinarySearchFunc(series, on, func(r rate, d Date) int { return r.on.Compare(d) })
	if found {
		return series[i].value, true
	}
	if i == 0 {
		return decimal.Decimal{}, false
	}
	r := series[i-1]
	if t.Lookback > 0 && r.on.DaysUntil(on) > t.Lookback {
		return decimal.Decimal{}, false
	}
	return r.value, true
}

func (t *RateTable) ConvertMoney(_ context.Context, m Money, currency string, on Date) (Money, error) {
	if m.Currency() == currency {
		return m, nil
	}
	r, ok := t.Rate(m.Currency(), currency, on)
	if !ok {
		return Money{}, fmt.Errorf("convert %s to %s on %s: %w", m.Currency(), currency, on, ErrNoRate)
	}
	return M(m.Amount().Mul(r), currency), nil
}

type rateKey struct {
	from, to string
	on       Date
}

// CachingExchange memoizes the rates of another Exchange per currency pair
// and day. It is safe for concurrent use.
type CachingExchange struct {
	next Exchange

	mu    sync.Mutex
	rates map[rateKey]*decimal.Decimal // nil value: known to be missing
}

// NewCachingExchange wraps 'next' with a rate cache.
func NewCachingExchange(next Exchange) *CachingExchange {
	return &CachingExchange{next: next, rates: make(map[rateKey]*decimal.Decimal)}
}

func (c *CachingExchange) ConvertMoney(ctx context.Context, m Money, currency string, on Date) (Money, error) {
	if m.Currency() == currency {
		return m, nil
	}
	r, err := c.rate(ctx, m.Currency(), currency, on)
	if err != nil {
		return Money{}, err
	}
	return M(m.Amount().Mul(r), currency), nil
}

func (c *CachingExchange) rate(ctx context.Context, from, to string, on Date) (decimal.Decimal, error) {
	k := rateKey{from, to, on}
	c.mu.Lock()
	r, cached := c.rates[k]
	c.mu.Unlock()
	if cached {
		if r == nil {
			return decimal.Decimal{}, fmt.Errorf("convert %s to %s on %s: %w", from, to, on, ErrNoRate)
		}
		return *r, nil
	}

	unit, err := c.next.ConvertMoney(ctx, M(1, from), to, on)
	switch {
	case errors.Is(err, ErrNoRate):
		c.store(k, nil)
		return decimal.Decimal{}, err
	case err != nil:
		return decimal.Decimal{}, err // failures are not cached
	}
	v := unit.Amount()
	c.store(k, &v)
	return v, nil
}

func (c *CachingExchange) store(k rateKey, v *decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates[k] = v
}

// Preload fetches the rates of every currency into 'target' for every day of
// the range, so that later conversions are served from the cache.
//
// Missing rates are not an error.
func (c *CachingExchange) Preload(ctx context.Context, currencies []string, target string, r Range) error {
	for _, cur := range currencies {
		if cur == target || cur == "" {
			continue
		}
		for day := range r.Days() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := c.rate(ctx, cur, target, day); err != nil && !errors.Is(err, ErrNoRate) {
				return fmt.Errorf("preload %s%s: %w", cur, target, err)
			}
		}
	}
	return nil
}
