package cmd

import (
	"context"
	"fmt"
	"slices"

	"github.com/etnz/valuation"
	"github.com/etnz/valuation/config"
	"github.com/etnz/valuation/eodhd"
	"github.com/etnz/valuation/logger"
)

// newEODHD creates the eodhd client described by 'cfg'.
func newEODHD(cfg *config.Config) (*eodhd.Client, error) {
	if cfg.EODHD.APIKey == "" {
		return nil, fmt.Errorf("EODHD API key is not set. Use the eodhd.api_key configuration or the EODHD_API_KEY environment variable")
	}
	return eodhd.New(cfg.EODHD.APIKey,
		eodhd.WithBaseURL(cfg.EODHD.BaseURL),
		eodhd.WithCacheDir(cfg.EODHD.CacheDir),
		eodhd.WithLogger(logger.Get()),
	)
}

// span returns the range from the first position activity of 'holdings' to
// 'until', and false when there is no position activity.
func span(holdings []*valuation.Holding, until valuation.Date) (valuation.Range, bool) {
	var r valuation.Range
	found := false
	for _, h := range holdings {
		for _, a := range h.Positions() {
			if !found || a.When().Before(r.From) {
				r.From = a.When()
			}
			if !found || a.When().After(r.To) {
				r.To = a.When()
			}
			found = true
		}
	}
	if until.After(r.To) {
		r.To = until
	}
	return r, found
}

// profileCurrencies returns the sorted distinct currencies of the holdings
// profiles other than 'target'.
func profileCurrencies(holdings []*valuation.Holding, target string) []string {
	var currencies []string
	for _, h := range holdings {
		p, ok := h.Profile()
		if !ok || p.Currency == "" || p.Currency == target {
			continue
		}
		if !slices.Contains(currencies, p.Currency) {
			currencies = append(currencies, p.Currency)
		}
	}
	slices.Sort(currencies)
	return currencies
}

// newExchange builds the exchange used to value 'holdings' in 'target' over 'r'.
//
// Rates are fetched from eodhd when an API key is configured. Otherwise
// foreign holdings are valued at zero.
func newExchange(ctx context.Context, cfg *config.Config, holdings []*valuation.Holding, target string, r valuation.Range) (valuation.Exchange, error) {
	log := logger.Get()
	currencies := profileCurrencies(holdings, target)
	table := valuation.NewRateTable()
	table.Lookback = cfg.Valuation.Lookback
	if len(currencies) == 0 {
		return table, nil
	}
	if cfg.EODHD.APIKey == "" {
		log.Warnw("no EODHD API key, foreign holdings are valued at zero", "currencies", currencies, "target", target)
		return table, nil
	}

	client, err := newEODHD(cfg)
	if err != nil {
		return nil, err
	}
	// rates are looked up as of a day, fetch some history before the range.
	fetched := valuation.NewRange(r.From.Add(-cfg.Valuation.Lookback-7), r.To)
	for _, cur := range currencies {
		if err := client.FetchRates(ctx, cur, target, fetched, table); err != nil {
			return nil, fmt.Errorf("failed to fetch %s%s rates: %w", cur, target, err)
		}
	}

	exchange := valuation.NewCachingExchange(table)
	if err := exchange.Preload(ctx, currencies, target, r); err != nil {
		return nil, err
	}
	return exchange, nil
}
