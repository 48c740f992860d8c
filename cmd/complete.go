package cmd

import (
	"slices"

	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Complete answers shell completion requests for the 'name' program. It
// returns immediately when the program is not invoked for completion.
func Complete(name string) {
	periods := predict.Set{"daily", "weekly", "monthly", "yearly"}
	symbols := complete.PredictFunc(predictSymbols)

	cmd := &complete.Command{
		Flags: map[string]complete.Predictor{
			"config":   predict.Files("*.yaml"),
			"holdings": predict.Files("*.json"),
			"v":        predict.Nothing,
		},
		Sub: map[string]*complete.Command{
			"snapshots": {
				Args: symbols,
				Flags: map[string]complete.Predictor{
					"c":          predict.Something,
					"until":      predict.Something,
					"period":     periods,
					"summary":    predict.Nothing,
					"db":         predict.Files("*.db"),
					"cost-basis": predict.Set{"average", "fifo"},
					"lookback":   predict.Something,
					"jsonl":      predict.Nothing,
				},
			},
			"trace": {
				Args: symbols,
				Flags: map[string]complete.Predictor{
					"lookback": predict.Something,
					"json":     predict.Nothing,
				},
			},
			"show": {
				Args: symbols,
				Flags: map[string]complete.Predictor{
					"db":      predict.Files("*.db"),
					"c":       predict.Something,
					"period":  periods,
					"summary": predict.Nothing,
				},
			},
			"topic": {Args: predict.Set{"*", "holdings", "adjustments", "dates", "configuration"}},
			"fetch": {
				Args: symbols,
				Flags: map[string]complete.Predictor{
					"from":   predict.Something,
					"to":     predict.Something,
					"latest": predict.Nothing,
				},
			},
		},
	}
	cmd.Complete(name)
}

// predictSymbols suggests the symbols of the default holdings file.
func predictSymbols(string) []string {
	holdings, err := DecodeHoldings()
	if err != nil {
		return nil
	}
	var symbols []string
	for _, h := range holdings {
		if p, ok := h.Profile(); ok {
			symbols = append(symbols, p.Symbol)
		}
	}
	slices.Sort(symbols)
	return slices.Compact(symbols)
}
