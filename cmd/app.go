// Package cmd implements the valuate command line tool.
package cmd

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/valuation"
	"github.com/etnz/valuation/config"
	"github.com/etnz/valuation/logger"
	"github.com/google/subcommands"
	"golang.org/x/term"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&snapshotsCmd{}, "valuation")
	c.Register(&traceCmd{}, "valuation")
	c.Register(&showCmd{}, "valuation")

	c.Register(&fetchCmd{}, "market data")

	c.Register(&topicCmd{}, "help")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configPath = flag.String("config", config.DefaultPath, "Path to the YAML configuration file")
var holdingsFile = flag.String("holdings", "holdings.json", "Path to the holdings file (JSON array or stream of holdings)")

// Verbose enables debug logs.
var Verbose = flag.Bool("v", false, "verbose logging")

// output receives the reports, stderr receives errors and logs.
var output io.Writer = os.Stdout

// loadConfig loads the configuration and initializes the logger accordingly.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Env, *Verbose)
	return cfg, nil
}

// DecodeHoldings decodes the holdings of the app holdings file.
func DecodeHoldings() ([]*valuation.Holding, error) {
	f, err := os.Open(*holdingsFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return valuation.DecodeHoldings(f)
}

// EncodeHoldings replaces the app holdings file with 'holdings', as a JSON array.
func EncodeHoldings(holdings []*valuation.Holding) error {
	data, err := json.MarshalIndent(holdings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode holdings: %w", err)
	}
	return os.WriteFile(*holdingsFile, append(data, '\n'), 0644)
}

// selectHoldings keeps the holdings whose symbol is in 'symbols', or all of
// them when 'symbols' is empty.
func selectHoldings(holdings []*valuation.Holding, symbols []string) []*valuation.Holding {
	if len(symbols) == 0 {
		return holdings
	}
	return slices.DeleteFunc(slices.Clone(holdings), func(h *valuation.Holding) bool {
		return !slices.Contains(symbols, h.Name())
	})
}

// printMarkdown renders 'md' when the output is a terminal, and prints it as
// is otherwise.
func printMarkdown(md string) {
	if f, ok := output.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if out, err := renderTerminal(md); err == nil {
			fmt.Fprint(output, out)
			return
		}
	}
	fmt.Fprint(output, md)
}

func renderTerminal(md string) (string, error) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(0))
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
