package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/valuation"
	"github.com/etnz/valuation/config"
	"github.com/etnz/valuation/logger"
	"github.com/etnz/valuation/renderer"
	"github.com/etnz/valuation/store"
	"github.com/google/subcommands"
)

// snapshotsCmd holds the flags for the 'snapshots' subcommand.
type snapshotsCmd struct {
	currency  string
	until     string
	period    string
	summary   bool
	db        string
	costBasis string
	lookback  int
	jsonl     bool
}

func (*snapshotsCmd) Name() string     { return "snapshots" }
func (*snapshotsCmd) Synopsis() string { return "compute the day by day valuation of holdings" }
func (*snapshotsCmd) Usage() string {
	return `valuate snapshots [-c <currency>] [-until <date>] [-period <period>] [-summary] [-db <file>] [<symbol>...]

  Adjusts the activities of every holding (or only the given symbols) and
  computes one valuation snapshot per day, from the first activity to the
  last one, or to -until when it is later.
`
}

func (c *snapshotsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "c", "", "Reporting currency, defaults to the configured target currency")
	f.StringVar(&c.until, "until", "", "Extend the snapshots up to this date. See the user manual for supported date formats.")
	f.StringVar(&c.period, "period", "daily", "Sampling of the history tables: daily, weekly, monthly or yearly")
	f.BoolVar(&c.summary, "summary", false, "Only display the latest snapshot of each holding")
	f.StringVar(&c.db, "db", "", "Save the valuations into this SQLite database, defaults to the configured one")
	f.StringVar(&c.costBasis, "cost-basis", "", "Cost basis method: average or fifo, defaults to the configured one")
	f.IntVar(&c.lookback, "lookback", -1, "Days a price or a rate can be carried forward, 0 is unbounded, defaults to the configured one")
	f.BoolVar(&c.jsonl, "jsonl", false, "Print the snapshots as JSON lines instead of a markdown report")
}

// options resolves the flags against the configuration.
func (c *snapshotsCmd) options(cfg *config.Config) (currency string, until valuation.Date, period valuation.Period, method valuation.CostBasisMethod, err error) {
	currency = cfg.Valuation.TargetCurrency
	if c.currency != "" {
		currency = strings.ToUpper(c.currency)
	}
	if c.until != "" {
		if until, err = valuation.ParseDate(c.until); err != nil {
			return
		}
	}
	if period, err = valuation.ParsePeriod(c.period); err != nil {
		return
	}
	basis := cfg.Valuation.CostBasis
	if c.costBasis != "" {
		basis = c.costBasis
	}
	if method, err = valuation.ParseCostBasisMethod(basis); err != nil {
		return
	}
	if c.lookback >= 0 {
		cfg.Valuation.Lookback = c.lookback
	}
	if c.db != "" {
		cfg.Database.SQLitePath = c.db
	}
	return
}

func (c *snapshotsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	defer logger.Sync()
	log := logger.Get()

	currency, until, period, method, err := c.options(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	holdings, err := DecodeHoldings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading holdings: %v\n", err)
		return subcommands.ExitFailure
	}
	holdings = selectHoldings(holdings, f.Args())

	var exchange valuation.Exchange = valuation.Identity{}
	if r, ok := span(holdings, until); ok {
		if exchange, err = newExchange(ctx, cfg, holdings, currency, r); err != nil {
			fmt.Fprintf(os.Stderr, "Error preparing exchange rates: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	lookback := cfg.Valuation.Lookback
	batch := &valuation.Batch{
		Pipeline: valuation.NewPipeline(valuation.WithLogger(log), valuation.WithPriceLookback(lookback)),
		Calculator: valuation.NewCalculator(exchange,
			valuation.WithCalculatorLogger(log),
			valuation.WithLookback(lookback),
			valuation.WithCostBasis(method),
		),
		Concurrency: cfg.Valuation.Concurrency,
		Until:       until,
		Log:         log,
	}
	results, err := batch.Run(ctx, holdings, currency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	status := subcommands.ExitSuccess
	var valuations []*valuation.Valuation
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "Error valuing %s: %v\n", res.Holding.Name(), res.Err)
			status = subcommands.ExitFailure
			continue
		}
		valuations = append(valuations, res.Valuation)
	}

	if cfg.Database.SQLitePath != "" {
		if err := saveValuations(ctx, cfg.Database.SQLitePath, valuations); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving valuations: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	if c.jsonl {
		for _, v := range valuations {
			if err := valuation.EncodeValuation(output, v); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return subcommands.ExitFailure
			}
		}
		return status
	}
	printMarkdown(renderer.RenderReport(renderer.NewReport(currency, valuations, period, c.summary)))
	return status
}

// saveValuations replaces the stored history of every valued holding.
func saveValuations(ctx context.Context, path string, valuations []*valuation.Valuation) error {
	db, err := store.Open(path, logger.Get())
	if err != nil {
		return err
	}
	defer db.Close()
	for _, v := range valuations {
		if v.Symbol == "" {
			continue
		}
		if err := db.Save(ctx, v); err != nil {
			return err
		}
	}
	return nil
}
