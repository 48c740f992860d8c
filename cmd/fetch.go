package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/valuation"
	"github.com/etnz/valuation/eodhd"
	"github.com/etnz/valuation/logger"
	"github.com/google/subcommands"
)

// fetchCmd holds the flags for the 'fetch' subcommand.
type fetchCmd struct {
	from   string
	to     string
	latest bool
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "fetch market data and splits from eodhd.com" }
func (*fetchCmd) Usage() string {
	return `valuate fetch [-from <date>] [-to <date>] [-latest] [<symbol>...]

  Updates the symbol profiles of the holdings file with end of day prices and
  stock splits from eodhd.com.

  Requires the EODHD_API_KEY environment variable or the eodhd.api_key
  configuration.
`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "First day to fetch, defaults to the first activity of each holding")
	f.StringVar(&c.to, "to", "-1d", "Last day to fetch. See the user manual for supported date formats.")
	f.BoolVar(&c.latest, "latest", false, "Also record today's delayed quote")
}

// fetchRange returns the days to fetch for 'h'.
func (c *fetchCmd) fetchRange(h *valuation.Holding) (valuation.Range, error) {
	to, err := valuation.ParseDate(c.to)
	if err != nil {
		return valuation.Range{}, err
	}
	if c.from != "" {
		from, err := valuation.ParseDate(c.from)
		if err != nil {
			return valuation.Range{}, err
		}
		return valuation.NewRange(from, to), nil
	}
	r, ok := span([]*valuation.Holding{h}, to)
	if !ok {
		return valuation.NewRange(to, to), nil
	}
	return valuation.NewRange(r.From, to), nil
}

func (c *fetchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	defer logger.Sync()

	client, err := newEODHD(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	holdings, err := DecodeHoldings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading holdings: %v\n", err)
		return subcommands.ExitFailure
	}

	for _, h := range selectHoldings(holdings, f.Args()) {
		p, ok := h.Profile()
		if !ok {
			continue
		}
		r, err := c.fetchRange(h)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
		if err := client.UpdateProfile(ctx, p, r); err != nil {
			fmt.Fprintf(os.Stderr, "Error: could not fetch %s from eodhd.com: %v\n", p.Symbol, err)
			return subcommands.ExitFailure
		}
		if c.latest {
			if err := recordLatest(ctx, client, p); err != nil {
				fmt.Fprintf(os.Stderr, "Error: could not fetch latest %s quote: %v\n", p.Symbol, err)
				return subcommands.ExitFailure
			}
		}
		fmt.Fprintf(output, "%s: %d prices, %d splits\n", p.Symbol, len(p.MarketData), len(p.Splits))
	}

	if err := EncodeHoldings(holdings); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing holdings file %q: %v\n", *holdingsFile, err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(os.Stderr, "✅ Successfully fetched from eodhd.com and updated %s.\n", *holdingsFile)
	return subcommands.ExitSuccess
}

// recordLatest replaces the entry of the day of the latest quote of 'p'.
func recordLatest(ctx context.Context, client *eodhd.Client, p *valuation.SymbolProfile) error {
	md, err := client.Latest(ctx, p.Symbol, p.Currency)
	if err != nil {
		return err
	}
	// Sort keeps the first entry of a date.
	p.MarketData = append([]valuation.MarketData{md}, p.MarketData...)
	p.Sort()
	return nil
}
