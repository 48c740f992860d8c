package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/valuation"
	"github.com/etnz/valuation/logger"
	"github.com/etnz/valuation/renderer"
	"github.com/etnz/valuation/store"
	"github.com/google/subcommands"
)

// showCmd holds the flags for the 'show' subcommand.
type showCmd struct {
	db       string
	currency string
	period   string
	summary  bool
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "display valuations saved by 'snapshots'" }
func (*showCmd) Usage() string {
	return `valuate show [-db <file>] [-c <currency>] [-period <period>] [-summary] [<symbol>...]

  Displays the valuations saved in the SQLite database, without recomputing
  them.
`
}

func (c *showCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.db, "db", "", "SQLite database, defaults to the configured one")
	f.StringVar(&c.currency, "c", "", "Reporting currency, defaults to the configured target currency")
	f.StringVar(&c.period, "period", "daily", "Sampling of the history tables: daily, weekly, monthly or yearly")
	f.BoolVar(&c.summary, "summary", false, "Only display the latest snapshot of each holding")
}

func (c *showCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	defer logger.Sync()

	path := cfg.Database.SQLitePath
	if c.db != "" {
		path = c.db
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "Error: no database. Use -db or the database.sqlite_path configuration")
		return subcommands.ExitUsageError
	}
	currency := cfg.Valuation.TargetCurrency
	if c.currency != "" {
		currency = strings.ToUpper(c.currency)
	}
	period, err := valuation.ParsePeriod(c.period)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	db, err := store.Open(path, logger.Get())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	symbols := f.Args()
	if len(symbols) == 0 {
		if symbols, err = db.Symbols(ctx, currency); err != nil {
			fmt.Fprintf(os.Stderr, "Error listing valuations: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	var valuations []*valuation.Valuation
	for _, symbol := range symbols {
		v, err := db.Load(ctx, symbol, currency)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", symbol, err)
			return subcommands.ExitFailure
		}
		valuations = append(valuations, v)
	}
	printMarkdown(renderer.RenderReport(renderer.NewReport(currency, valuations, period, c.summary)))
	return subcommands.ExitSuccess
}
