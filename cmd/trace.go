package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/valuation"
	"github.com/etnz/valuation/logger"
	"github.com/etnz/valuation/renderer"
	"github.com/google/subcommands"
)

// traceCmd holds the flags for the 'trace' subcommand.
type traceCmd struct {
	lookback int
	json     bool
}

func (*traceCmd) Name() string     { return "trace" }
func (*traceCmd) Synopsis() string { return "explain how activities were adjusted" }
func (*traceCmd) Usage() string {
	return `valuate trace [-lookback <days>] [-json] [<symbol>...]

  Runs the adjustment pipeline on every holding (or only the given symbols)
  and displays, for each activity, the steps that produced its adjusted
  quantity and price.
`
}

func (c *traceCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.lookback, "lookback", -1, "Days a price can be carried forward, 0 is unbounded, defaults to the configured one")
	f.BoolVar(&c.json, "json", false, "Print the adjusted holdings as JSON instead of a markdown report")
}

func (c *traceCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	defer logger.Sync()

	lookback := cfg.Valuation.Lookback
	if c.lookback >= 0 {
		lookback = c.lookback
	}

	holdings, err := DecodeHoldings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading holdings: %v\n", err)
		return subcommands.ExitFailure
	}
	holdings = selectHoldings(holdings, f.Args())

	pipeline := valuation.NewPipeline(valuation.WithLogger(logger.Get()), valuation.WithPriceLookback(lookback))
	for _, h := range holdings {
		if err := pipeline.Run(h); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	if c.json {
		enc := json.NewEncoder(output)
		enc.SetIndent("", "  ")
		if err := enc.Encode(holdings); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}
	for _, h := range holdings {
		printMarkdown(renderer.RenderTrace(renderer.NewTrace(h)))
	}
	return subcommands.ExitSuccess
}
