package eodhd

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/valuation"
	"github.com/shopspring/decimal"
)

// This file contains functions to access the EODHD API.

type eodInfo struct {
	Date   valuation.Date  `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// fetchEOD returns the daily prices of an EODHD ticker ("SYMBOL.EXCHANGECODE").
// Bounds are included in the response.
func (c *Client) fetchEOD(ctx context.Context, ticker string, from, to valuation.Date) ([]eodInfo, error) {
	// https://eodhd.com/api/eod/NVD.F?api_token=demo&fmt=json
	// [{"date": "2024-02-13", "open": 675.066, "high": 684.219, "low": 648.659, "close": 668.445, "adjusted_close": 67.705, "volume": 0}]
	q := url.Values{"from": {from.String()}, "to": {to.String()}}
	var content []eodInfo
	if err := c.jwget(ctx, c.endpoint("/eod/"+url.PathEscape(ticker), q), &content); err != nil {
		return nil, fmt.Errorf("failed to fetch prices of %s: %w", ticker, err)
	}
	return content, nil
}

// FetchPrices returns the market data of 'ticker' over 'r', in 'currency'.
func (c *Client) FetchPrices(ctx context.Context, ticker, currency string, r valuation.Range) ([]valuation.MarketData, error) {
	content, err := c.fetchEOD(ctx, ticker, r.From, r.To)
	if err != nil {
		return nil, err
	}
	out := make([]valuation.MarketData, 0, len(content))
	for _, info := range content {
		out = append(out, valuation.MarketData{
			Date:   info.Date,
			Open:   valuation.M(info.Open, currency),
			High:   valuation.M(info.High, currency),
			Low:    valuation.M(info.Low, currency),
			Close:  valuation.M(info.Close, currency),
			Volume: info.Volume,
		})
	}
	return out, nil
}

// FetchSplits returns the split history of 'ticker' over 'r'.
func (c *Client) FetchSplits(ctx context.Context, ticker string, r valuation.Range) ([]valuation.StockSplit, error) {
	type apiSplit struct {
		Date  valuation.Date `json:"date"`
		Split string         `json:"split"` // "new/old", e.g. "4.000000/1.000000"
	}

	q := url.Values{"from": {r.From.String()}, "to": {r.To.String()}}
	var content []apiSplit
	if err := c.jwget(ctx, c.endpoint("/splits/"+url.PathEscape(ticker), q), &content); err != nil {
		return nil, fmt.Errorf("failed to fetch splits of %s: %w", ticker, err)
	}

	splits := make([]valuation.StockSplit, 0, len(content))
	for _, s := range content {
		parts := strings.Split(s.Split, "/")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid split format from API: %q", s.Split)
		}
		numDecimal, err := decimal.NewFromString(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid numerator in split %q: %w", s.Split, err)
		}
		denDecimal, err := decimal.NewFromString(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid denominator in split %q: %w", s.Split, err)
		}
		if !numDecimal.IsPositive() || !denDecimal.IsPositive() {
			return nil, fmt.Errorf("invalid split ratio from API: %q", s.Split)
		}
		num, den := simplifyDecimalRatio(numDecimal, denDecimal)
		// EODHD gives new units per old ones.
		splits = append(splits, valuation.NewStockSplit(s.Date, den, num))
	}
	return splits, nil
}

// UpdateProfile replaces the market data and splits of 'p' over 'r' with
// fresh ones. Data outside of 'r' is kept.
func (c *Client) UpdateProfile(ctx context.Context, p *valuation.SymbolProfile, r valuation.Range) error {
	if p.Symbol == "" || p.Currency == "" {
		return fmt.Errorf("profile %q needs a symbol and a currency to be updated", p.Symbol)
	}
	prices, err := c.FetchPrices(ctx, p.Symbol, p.Currency, r)
	if err != nil {
		return err
	}
	splits, err := c.FetchSplits(ctx, p.Symbol, r)
	if err != nil {
		return err
	}

	// fresh entries first: Sort keeps the first of each date.
	p.MarketData = append(prices, p.MarketData...)
	for _, s := range p.Splits {
		if !slices.ContainsFunc(splits, func(n valuation.StockSplit) bool { return n.Date == s.Date }) {
			splits = append(splits, s)
		}
	}
	p.Splits = splits
	p.Sort()
	c.log.Infow("profile updated", "symbol", p.Symbol, "prices", len(prices), "range", r.Identifier())
	return nil
}

// FetchRates appends the daily base/quote rates over 'r' to 'table'.
func (c *Client) FetchRates(ctx context.Context, base, quote string, r valuation.Range, table *valuation.RateTable) error {
	// The Ticker for forex is in the format "fromCurrency+toCurrency.FOREX".
	ticker := fmt.Sprintf("%s%s.FOREX", base, quote)

	// eodhd forex close is most of the time equal to the open. The open of the
	// next day is closer to the truth, so be it.
	content, err := c.fetchEOD(ctx, ticker, r.From.Add(1), r.To.Add(1))
	if err != nil {
		return err
	}
	for _, info := range content {
		if !info.Open.IsPositive() {
			continue
		}
		table.Append(base, quote, info.Date.Add(-1), info.Open)
	}
	c.log.Debugw("rates fetched", "pair", base+quote, "count", len(content))
	return nil
}

// Latest returns the real-time (delayed) quote of 'ticker' as a market data
// entry holding only a close price.
func (c *Client) Latest(ctx context.Context, ticker, currency string) (valuation.MarketData, error) {
	// {"code":"AAPL.US","timestamp":1718049600,"gmtoffset":0,"open":196.9,"high":197.3,"low":192.15,"close":193.12,"volume":97262077}
	var jobj any
	if err := c.jwget(ctx, c.endpoint("/real-time/"+url.PathEscape(ticker), nil), &jobj); err != nil {
		return valuation.MarketData{}, fmt.Errorf("failed to fetch latest quote of %s: %w", ticker, err)
	}
	price, err := jsonFloat(jobj, "$.close")
	if err != nil {
		return valuation.MarketData{}, fmt.Errorf("latest quote of %s: %w", ticker, err)
	}
	ts, err := jsonFloat(jobj, "$.timestamp")
	if err != nil {
		return valuation.MarketData{}, fmt.Errorf("latest quote of %s: %w", ticker, err)
	}
	on := valuation.NewDate(time.Unix(int64(ts), 0).UTC().Date())
	return valuation.MarketData{Date: on, Close: valuation.M(decimal.NewFromFloat(price), currency)}, nil
}

// jsonFloat extracts a number at 'path' in a decoded JSON document.
func jsonFloat(jobj any, path string) (float64, error) {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return 0, fmt.Errorf("error parsing %q: %w", path, err)
	}
	// because jsonpath is never clear about whether it returns a list of 1
	// answer, or a single answer: by this call I keep the first one if any
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	val, ok := jval.(float64)
	if !ok {
		// EODHD reports "NA" for instruments without quote.
		return 0, fmt.Errorf("value at %q is not a number: %v", path, jval)
	}
	return val, nil
}

// simplifyDecimalRatio converts a ratio of decimals into a simplified integer fraction.
func simplifyDecimalRatio(numDecimal, denDecimal decimal.Decimal) (num, den int64) {
	// We find a common multiplier to make both numerator and denominator
	// integers, from the number of digits after the decimal point.
	numExp := -numDecimal.Exponent()
	denExp := -denDecimal.Exponent()
	multiplier := decimal.NewFromInt(1)
	if numExp > 0 {
		multiplier = decimal.NewFromInt(10).Pow(decimal.NewFromInt32(numExp))
	}
	if denExp > numExp {
		multiplier = decimal.NewFromInt(10).Pow(decimal.NewFromInt32(denExp))
	}

	numInt := numDecimal.Mul(multiplier).BigInt()
	denInt := denDecimal.Mul(multiplier).BigInt()

	// Simplify the fraction by dividing by the greatest common divisor.
	commonDivisor := new(big.Int).GCD(nil, nil, numInt, denInt)

	num = new(big.Int).Div(numInt, commonDivisor).Int64()
	den = new(big.Int).Div(denInt, commonDivisor).Int64()
	return
}
